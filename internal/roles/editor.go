package roles

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"podforge/internal/llm"
	"podforge/internal/logging"
	"podforge/internal/state"
)

// Editor reviews the section at the snapshot cursor and either approves it or
// requests another generator pass with feedback.
type Editor struct {
	client *llm.Client
	logger *slog.Logger
}

// NewEditor constructs the editor role.
func NewEditor(client *llm.Client, logger *slog.Logger) *Editor {
	return &Editor{
		client: client,
		logger: logging.NewComponentLogger(logger, "editor"),
	}
}

func (e *Editor) Name() Name { return RoleEditor }

type editorVerdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback"`
}

// Act returns SectionApproved or ReviewRequested for the cursor section.
func (e *Editor) Act(ctx context.Context, snap state.Snapshot, instructions string) (Action, error) {
	section, ok := snap.SectionScripts[snap.Cursor]
	if !ok {
		return Failed(fmt.Sprintf("no script stored for section %d", snap.Cursor)), nil
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Content analysis:\n%s\n\n", renderAnalysis(snap))
	fmt.Fprintf(&user, "Section under review:\n%s\n\n", renderSection(section))
	if notes := renderFeedback(snap, snap.Cursor); notes != "(no feedback yet)" {
		fmt.Fprintf(&user, "Feedback already given:\n%s\n\n", notes)
	}
	user.WriteString("Respond with JSON: {\"approved\": true|false, \"feedback\": \"...\"}.")

	payload, err := e.client.CompleteJSON(ctx, instructions, user.String())
	if err != nil {
		return Action{}, fmt.Errorf("editor: %w", err)
	}

	var verdict editorVerdict
	if err := llm.DecodeJSON(payload, &verdict); err != nil {
		return Action{}, fmt.Errorf("editor: parse payload: %w", err)
	}

	if verdict.Approved {
		e.logger.Info("section approved",
			logging.String(logging.FieldEventType, "section_approved"),
			logging.Int(logging.FieldSectionID, snap.Cursor))
		return SectionApproved(snap.Cursor), nil
	}

	feedback := strings.TrimSpace(verdict.Feedback)
	if feedback == "" {
		feedback = "revise the section; the editor rejected it without detail"
	}
	e.logger.Info("revision requested",
		logging.String(logging.FieldEventType, "review_requested"),
		logging.Int(logging.FieldSectionID, snap.Cursor),
		logging.Int("prior_feedback", snap.FeedbackCount(snap.Cursor)))
	return ReviewRequested(snap.Cursor, feedback), nil
}
