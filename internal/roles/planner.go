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

// Planner maintains the execution plan and decides which section to produce
// next, or that the episode is complete.
type Planner struct {
	client *llm.Client
	logger *slog.Logger
}

// NewPlanner constructs the planner role.
func NewPlanner(client *llm.Client, logger *slog.Logger) *Planner {
	return &Planner{
		client: client,
		logger: logging.NewComponentLogger(logger, "planner"),
	}
}

func (p *Planner) Name() Name { return RolePlanner }

type plannerDecision struct {
	Command   string `json:"command"`
	Plan      string `json:"plan"`
	SectionID int    `json:"section_id"`
}

const (
	plannerCommandPlan    = "plan"
	plannerCommandAdvance = "advance"
	plannerCommandWrapUp  = "wrap_up"
)

// Act inspects the snapshot and returns one of Planned, SectionAdvanced, or
// WrappedUp. A missing analysis is unrecoverable for planning.
func (p *Planner) Act(ctx context.Context, snap state.Snapshot, instructions string) (Action, error) {
	if snap.Analysis == nil {
		return Failed("no content analysis available for planning"), nil
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Content analysis:\n%s\n\n", renderAnalysis(snap))
	if strings.TrimSpace(snap.Plan) != "" {
		fmt.Fprintf(&user, "Current execution plan:\n%s\n\n", snap.Plan)
	} else {
		user.WriteString("No execution plan exists yet; produce one first.\n\n")
	}
	user.WriteString(renderProgress(snap))
	fmt.Fprintf(&user, "\nThe next new section would be %d.\n", snap.NextSectionID())
	user.WriteString("Respond with JSON: {\"command\": \"plan\"|\"advance\"|\"wrap_up\", \"plan\": \"...\", \"section_id\": N}.")

	payload, err := p.client.CompleteJSON(ctx, instructions, user.String())
	if err != nil {
		return Action{}, fmt.Errorf("planner: %w", err)
	}

	var decision plannerDecision
	if err := llm.DecodeJSON(payload, &decision); err != nil {
		return Action{}, fmt.Errorf("planner: parse payload: %w", err)
	}

	command := strings.ToLower(strings.TrimSpace(decision.Command))
	p.logger.Info("planning decision",
		logging.String(logging.FieldEventType, "planner_decision"),
		logging.String("command", command),
		logging.Int(logging.FieldSectionID, decision.SectionID))

	switch command {
	case plannerCommandPlan:
		if strings.TrimSpace(decision.Plan) == "" {
			return Action{}, fmt.Errorf("planner: plan command carried no plan text")
		}
		return Planned(decision.Plan), nil
	case plannerCommandAdvance:
		if decision.SectionID <= 0 {
			decision.SectionID = snap.NextSectionID()
		}
		return SectionAdvanced(decision.SectionID), nil
	case plannerCommandWrapUp:
		return WrappedUp(), nil
	default:
		return Action{}, fmt.Errorf("planner: unknown command %q", decision.Command)
	}
}
