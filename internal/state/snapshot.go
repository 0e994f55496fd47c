package state

import (
	"fmt"
	"strings"

	"podforge/internal/script"
	"podforge/internal/services"
)

// Snapshot is the shared context threaded by value through every role
// invocation. Mutators return a new validated snapshot and never modify the
// receiver, so an invalid input leaves the prior snapshot untouched and every
// engine transition stays replayable.
type Snapshot struct {
	Content         string                  `json:"content"`
	Analysis        *script.ContentAnalysis `json:"content_analysis,omitempty"`
	SectionScripts  map[int]script.Section  `json:"section_scripts"`
	SectionFeedback map[int][]string        `json:"section_feedbacks"`
	Plan            string                  `json:"execution_plan"`
	Cursor          int                     `json:"current_section_id"`
	Complete        bool                    `json:"is_complete"`
	Errors          []string                `json:"errors"`
	Warnings        []string                `json:"warnings"`
}

// New creates an empty snapshot carrying the raw content to process.
func New(content string) Snapshot {
	return Snapshot{
		Content:         content,
		SectionScripts:  map[int]script.Section{},
		SectionFeedback: map[int][]string{},
	}
}

func (s Snapshot) clone() Snapshot {
	next := s
	next.SectionScripts = make(map[int]script.Section, len(s.SectionScripts))
	for id, sec := range s.SectionScripts {
		next.SectionScripts[id] = sec
	}
	next.SectionFeedback = make(map[int][]string, len(s.SectionFeedback))
	for id, notes := range s.SectionFeedback {
		cp := make([]string, len(notes))
		copy(cp, notes)
		next.SectionFeedback[id] = cp
	}
	next.Errors = append([]string(nil), s.Errors...)
	next.Warnings = append([]string(nil), s.Warnings...)
	return next
}

// WithAnalysis stores the one-time content analysis.
func (s Snapshot) WithAnalysis(analysis *script.ContentAnalysis) (Snapshot, error) {
	if err := analysis.Validate(); err != nil {
		return s, err
	}
	if s.Analysis != nil {
		return s, services.Wrap(services.ErrValidation, "state", "analysis", "analysis already recorded", nil)
	}
	next := s.clone()
	cp := *analysis
	next.Analysis = &cp
	return next, nil
}

// WithSectionScript stores or replaces the script for a section. The section's
// own id must match the target id.
func (s Snapshot) WithSectionScript(id int, section script.Section) (Snapshot, error) {
	if err := section.Validate(); err != nil {
		return s, err
	}
	if section.SectionID != id {
		return s, services.Wrap(services.ErrValidation, "state", "section script",
			fmt.Sprintf("section id mismatch: payload %d, target %d", section.SectionID, id), nil)
	}
	next := s.clone()
	next.SectionScripts[id] = section
	return next, nil
}

// WithFeedback appends an editorial note for an existing section.
func (s Snapshot) WithFeedback(id int, note string) (Snapshot, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return s, services.Wrap(services.ErrValidation, "state", "feedback", "empty feedback note", nil)
	}
	if _, ok := s.SectionScripts[id]; !ok {
		return s, services.Wrap(services.ErrValidation, "state", "feedback",
			fmt.Sprintf("feedback references unknown section %d", id), nil)
	}
	next := s.clone()
	next.SectionFeedback[id] = append(next.SectionFeedback[id], note)
	return next, nil
}

// WithPlan stores or replaces the execution plan text. The plan is opaque to
// the engine and accepted verbatim.
func (s Snapshot) WithPlan(text string) (Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return s, services.Wrap(services.ErrValidation, "state", "plan", "empty plan text", nil)
	}
	next := s.clone()
	next.Plan = text
	return next, nil
}

// AdvanceTo moves the section cursor. The target must be a section that
// already exists or the next id to be created; section ids are stable 1-based
// integers.
func (s Snapshot) AdvanceTo(id int) (Snapshot, error) {
	if id <= 0 {
		return s, services.Wrap(services.ErrValidation, "state", "advance",
			fmt.Sprintf("section id %d must be positive", id), nil)
	}
	if _, exists := s.SectionScripts[id]; !exists && id != s.NextSectionID() {
		return s, services.Wrap(services.ErrValidation, "state", "advance",
			fmt.Sprintf("section %d is neither present nor next (next is %d)", id, s.NextSectionID()), nil)
	}
	next := s.clone()
	next.Cursor = id
	return next, nil
}

// MarkComplete sets the completion flag. The flag is monotonic within a run.
func (s Snapshot) MarkComplete() Snapshot {
	next := s.clone()
	next.Complete = true
	return next
}

// WithError appends an error note.
func (s Snapshot) WithError(msg string) Snapshot {
	next := s.clone()
	next.Errors = append(next.Errors, strings.TrimSpace(msg))
	return next
}

// WithWarning appends a warning note.
func (s Snapshot) WithWarning(msg string) Snapshot {
	next := s.clone()
	next.Warnings = append(next.Warnings, strings.TrimSpace(msg))
	return next
}

// NextSectionID returns the id the next new section would take.
func (s Snapshot) NextSectionID() int {
	max := 0
	for id := range s.SectionScripts {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// FeedbackCount returns how many editorial notes a section has accumulated.
func (s Snapshot) FeedbackCount(id int) int {
	return len(s.SectionFeedback[id])
}

// SectionIDs returns the ids of all stored sections in ascending order.
func (s Snapshot) SectionIDs() []int {
	ids := make([]int, 0, len(s.SectionScripts))
	for id := range s.SectionScripts {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}
