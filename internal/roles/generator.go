package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podforge/internal/llm"
	"podforge/internal/logging"
	"podforge/internal/script"
	"podforge/internal/state"
)

// Generator writes the script for the section at the snapshot cursor,
// incorporating any editorial feedback accumulated for that section.
type Generator struct {
	client *llm.Client
	logger *slog.Logger
}

// NewGenerator constructs the generator role.
func NewGenerator(client *llm.Client, logger *slog.Logger) *Generator {
	return &Generator{
		client: client,
		logger: logging.NewComponentLogger(logger, "generator"),
	}
}

func (g *Generator) Name() Name { return RoleGenerator }

// Act produces a SectionWritten action for the cursor section.
func (g *Generator) Act(ctx context.Context, snap state.Snapshot, instructions string) (Action, error) {
	if snap.Cursor <= 0 {
		return Failed("no active section to generate"), nil
	}
	if strings.TrimSpace(snap.Plan) == "" {
		return Failed("no execution plan available for generation"), nil
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Content analysis:\n%s\n\n", renderAnalysis(snap))
	fmt.Fprintf(&user, "Execution plan:\n%s\n\n", snap.Plan)
	fmt.Fprintf(&user, "Write section %d now.\n", snap.Cursor)
	if prior, ok := snap.SectionScripts[snap.Cursor]; ok {
		fmt.Fprintf(&user, "\nPrevious version of this section:\n%s\n", renderSection(prior))
		fmt.Fprintf(&user, "\nEditorial feedback to address:\n%s\n", renderFeedback(snap, snap.Cursor))
	}

	payload, err := g.client.CompleteJSON(ctx, instructions, user.String())
	if err != nil {
		return Action{}, fmt.Errorf("generator: %w", err)
	}

	var section script.Section
	if err := llm.DecodeJSON(payload, &section); err != nil {
		return Action{}, fmt.Errorf("generator: parse payload: %w", err)
	}
	if section.SectionID == 0 {
		section.SectionID = snap.Cursor
	}
	if err := section.Validate(); err != nil {
		return Action{}, fmt.Errorf("generator: %w", err)
	}

	g.logger.Info("section written",
		logging.String(logging.FieldEventType, "section_written"),
		logging.Int(logging.FieldSectionID, section.SectionID),
		logging.Int("segments", len(section.Segments)))

	return SectionWritten(section.SectionID, &section), nil
}
