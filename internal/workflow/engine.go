package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"podforge/internal/logging"
	"podforge/internal/roles"
	"podforge/internal/script"
	"podforge/internal/services"
	"podforge/internal/state"
)

// State identifies a position in the generation state machine.
type State string

const (
	StateAnalyzing  State = "analyzing"
	StatePlanning   State = "planning"
	StateGenerating State = "generating"
	StateReviewing  State = "reviewing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Transition records one applied step for observability and testing.
type Transition struct {
	From   State        `json:"from"`
	Action roles.Action `json:"-"`
	Kind   roles.Kind   `json:"action"`
	To     State        `json:"to"`
}

// Config bounds the engine's loops. Both limits are first-class settings, not
// buried constants.
type Config struct {
	// RevisionLimit caps ReviewRequested events per section before the engine
	// forces approval.
	RevisionLimit int
	// RoundBudget caps total transitions before the run fails.
	RoundBudget int
}

const (
	DefaultRevisionLimit = 3
	DefaultRoundBudget   = 150
)

func (c Config) withDefaults() Config {
	if c.RevisionLimit <= 0 {
		c.RevisionLimit = DefaultRevisionLimit
	}
	if c.RoundBudget <= 0 {
		c.RoundBudget = DefaultRoundBudget
	}
	return c
}

// Engine sequences role invocations over a shared context snapshot. Exactly
// one role acts at a time; the engine applies its action and decides the next
// role, so no locking is required anywhere in the state layer.
type Engine struct {
	roles  roles.Set
	instr  roles.Instructions
	cfg    Config
	logger *slog.Logger

	onApproved func(script.Section) error
}

// Option configures optional engine behavior.
type Option func(*Engine)

// WithSectionApprovedHook registers a callback invoked each time a section is
// finalized, before the engine returns to planning. Persistence hooks use this
// to write approved scripts as they land.
func WithSectionApprovedHook(hook func(script.Section) error) Option {
	return func(e *Engine) {
		e.onApproved = hook
	}
}

// New constructs a workflow engine.
func New(set roles.Set, instr roles.Instructions, cfg Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if err := set.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new engine", err.Error(), nil)
	}
	engine := &Engine{
		roles:  set,
		instr:  instr,
		cfg:    cfg.withDefaults(),
		logger: logging.NewComponentLogger(logger, "workflow"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Run drives content through analysis, planning, generation, and review until
// the plan wraps up or a terminal failure occurs. It always returns the final
// snapshot and the ordered transition trace, even on failure, so callers can
// resume or diagnose.
func (e *Engine) Run(ctx context.Context, content string) (state.Snapshot, []Transition, error) {
	snap := state.New(content)
	current := StateAnalyzing
	trace := make([]Transition, 0, 32)
	rounds := 0

	for current != StateDone && current != StateFailed {
		if err := ctx.Err(); err != nil {
			return snap, trace, err
		}

		rounds++
		if rounds > e.cfg.RoundBudget {
			snap = snap.WithError(fmt.Sprintf("round budget %d exhausted", e.cfg.RoundBudget))
			trace = append(trace, Transition{From: current, Action: roles.Failed("round budget exhausted"), Kind: roles.KindFailed, To: StateFailed})
			e.logger.Error("round budget exhausted",
				logging.String(logging.FieldEventType, "budget_exhausted"),
				logging.Int("rounds", rounds-1))
			return snap, trace, services.Wrap(services.ErrBudget, "workflow", "run",
				fmt.Sprintf("round budget %d exhausted", e.cfg.RoundBudget), nil)
		}

		role := e.roleFor(current)
		stageCtx := services.WithStage(ctx, string(current))
		if snap.Cursor > 0 {
			stageCtx = services.WithSection(stageCtx, snap.Cursor)
		}

		action, err := role.Act(stageCtx, snap, e.instr.ForRole(role.Name()))
		if err != nil {
			if ctx.Err() != nil {
				return snap, trace, ctx.Err()
			}
			action = roles.Failed(err.Error())
		}

		if !roles.AllowedFor(role.Name(), action.Kind) {
			snap = snap.WithError(fmt.Sprintf("role %s emitted disallowed action %s", role.Name(), action.Kind))
			trace = append(trace, Transition{From: current, Action: action, Kind: action.Kind, To: current})
			continue
		}

		next, updated, applyErr := e.apply(current, action, snap)
		if applyErr != nil {
			// Validation failures reject the mutation: prior snapshot stands,
			// state does not change, and the loop (bounded by the round
			// budget) gives the role another chance.
			snap = snap.WithError(services.Message(applyErr))
			trace = append(trace, Transition{From: current, Action: action, Kind: action.Kind, To: current})
			e.logger.Warn("action rejected",
				logging.String(logging.FieldEventType, "action_rejected"),
				logging.String("action", action.String()),
				logging.Error(applyErr))
			continue
		}

		snap = updated
		trace = append(trace, Transition{From: current, Action: action, Kind: action.Kind, To: next})
		e.logger.Debug("transition applied",
			logging.String("from", string(current)),
			logging.String("action", action.String()),
			logging.String("to", string(next)))
		current = next
	}

	if current == StateFailed {
		reason := "workflow failed"
		if n := len(snap.Errors); n > 0 {
			reason = snap.Errors[n-1]
		}
		return snap, trace, services.Wrap(services.ErrRole, "workflow", "run", reason, nil)
	}
	return snap, trace, nil
}

func (e *Engine) roleFor(st State) roles.Role {
	switch st {
	case StateAnalyzing:
		return e.roles.Analyzer
	case StatePlanning:
		return e.roles.Planner
	case StateGenerating:
		return e.roles.Generator
	case StateReviewing:
		return e.roles.Editor
	default:
		return e.roles.Planner
	}
}

// apply implements the transition table. It returns the next state and the
// updated snapshot; a validation error leaves both untouched.
func (e *Engine) apply(current State, action roles.Action, snap state.Snapshot) (State, state.Snapshot, error) {
	if action.Kind == roles.KindFailed {
		failed := snap.WithError(action.Reason)
		return StateFailed, failed, nil
	}

	switch current {
	case StateAnalyzing:
		if action.Kind == roles.KindAnalyzed {
			next, err := snap.WithAnalysis(action.Analysis)
			if err != nil {
				return current, snap, err
			}
			return StatePlanning, next, nil
		}

	case StatePlanning:
		switch action.Kind {
		case roles.KindPlanned:
			next, err := snap.WithPlan(action.PlanText)
			if err != nil {
				return current, snap, err
			}
			return StatePlanning, next, nil
		case roles.KindSectionAdvanced:
			next, err := snap.AdvanceTo(action.SectionID)
			if err != nil {
				return current, snap, err
			}
			return StateGenerating, next, nil
		case roles.KindWrappedUp:
			return StateDone, snap.MarkComplete(), nil
		}

	case StateGenerating:
		if action.Kind == roles.KindSectionWritten {
			// Only the section under the cursor may be written; anything
			// else would strand the cursor on an id that never arrives.
			if action.SectionID != snap.Cursor {
				return current, snap, services.Wrap(services.ErrValidation, "workflow", "apply",
					fmt.Sprintf("section %d written while section %d is in progress", action.SectionID, snap.Cursor), nil)
			}
			next, err := snap.WithSectionScript(action.SectionID, *action.Section)
			if err != nil {
				return current, snap, err
			}
			return StateReviewing, next, nil
		}

	case StateReviewing:
		switch action.Kind {
		case roles.KindReviewRequested:
			if snap.FeedbackCount(action.SectionID) >= e.cfg.RevisionLimit {
				forced := snap.WithWarning(fmt.Sprintf(
					"section %d hit the revision limit (%d); forcing approval", action.SectionID, e.cfg.RevisionLimit))
				e.logger.Warn("revision limit reached",
					logging.String(logging.FieldEventType, "revision_limit_forced_approval"),
					logging.Int(logging.FieldSectionID, action.SectionID),
					logging.Int("limit", e.cfg.RevisionLimit))
				return e.approve(action.SectionID, forced)
			}
			next, err := snap.WithFeedback(action.SectionID, action.Feedback)
			if err != nil {
				return current, snap, err
			}
			return StateGenerating, next, nil
		case roles.KindSectionApproved:
			return e.approve(action.SectionID, snap)
		}
	}

	return current, snap, services.Wrap(services.ErrValidation, "workflow", "apply",
		fmt.Sprintf("action %s is not valid in state %s", action.Kind, current), nil)
}

func (e *Engine) approve(sectionID int, snap state.Snapshot) (State, state.Snapshot, error) {
	section, ok := snap.SectionScripts[sectionID]
	if !ok {
		return StateReviewing, snap, services.Wrap(services.ErrValidation, "workflow", "approve",
			fmt.Sprintf("approval references unknown section %d", sectionID), nil)
	}
	if e.onApproved != nil {
		if err := e.onApproved(section); err != nil {
			snap = snap.WithWarning(fmt.Sprintf("persist approved section %d: %v", sectionID, err))
		}
	}
	return StatePlanning, snap, nil
}
