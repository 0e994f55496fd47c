package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"podforge/internal/script"
	"podforge/internal/state"
)

// Role is a capability that consumes a context snapshot plus role-specific
// instructions and returns a structured action. Implementations must not
// mutate the snapshot; the workflow engine applies the returned action.
type Role interface {
	Name() Name
	Act(ctx context.Context, snap state.Snapshot, instructions string) (Action, error)
}

// Set bundles the four capability roles the workflow engine sequences.
type Set struct {
	Analyzer  Role
	Planner   Role
	Generator Role
	Editor    Role
}

// Validate confirms every capability slot is filled.
func (s Set) Validate() error {
	missing := make([]string, 0, 4)
	if s.Analyzer == nil {
		missing = append(missing, string(RoleAnalyzer))
	}
	if s.Planner == nil {
		missing = append(missing, string(RolePlanner))
	}
	if s.Generator == nil {
		missing = append(missing, string(RoleGenerator))
	}
	if s.Editor == nil {
		missing = append(missing, string(RoleEditor))
	}
	if len(missing) > 0 {
		return fmt.Errorf("role set incomplete: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func renderAnalysis(snap state.Snapshot) string {
	if snap.Analysis == nil {
		return "(no analysis yet)"
	}
	data, err := json.MarshalIndent(snap.Analysis, "", "  ")
	if err != nil {
		return "(analysis unavailable)"
	}
	return string(data)
}

func renderSection(sec script.Section) string {
	data, err := json.MarshalIndent(sec, "", "  ")
	if err != nil {
		return "(section unavailable)"
	}
	return string(data)
}

func renderProgress(snap state.Snapshot) string {
	var b strings.Builder
	ids := snap.SectionIDs()
	fmt.Fprintf(&b, "Sections written so far: %d\n", len(ids))
	for _, id := range ids {
		sec := snap.SectionScripts[id]
		fmt.Fprintf(&b, "  - section %d: %q (%d segments)\n", id, sec.Title, len(sec.Segments))
	}
	fmt.Fprintf(&b, "Current section cursor: %d\n", snap.Cursor)
	return b.String()
}

func renderFeedback(snap state.Snapshot, id int) string {
	notes := snap.SectionFeedback[id]
	if len(notes) == 0 {
		return "(no feedback yet)"
	}
	var b strings.Builder
	for i, note := range notes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, note)
	}
	return b.String()
}
