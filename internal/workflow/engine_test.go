package workflow_test

import (
	"context"
	"errors"
	"testing"

	"podforge/internal/logging"
	"podforge/internal/roles"
	"podforge/internal/script"
	"podforge/internal/services"
	"podforge/internal/state"
	"podforge/internal/testsupport"
	"podforge/internal/workflow"
)

type scriptedRole struct {
	name    roles.Name
	actions []roles.Action
	errs    []error
	calls   int
}

func (r *scriptedRole) Name() roles.Name { return r.name }

func (r *scriptedRole) Act(ctx context.Context, snap state.Snapshot, instructions string) (roles.Action, error) {
	idx := r.calls
	r.calls++
	if idx < len(r.errs) && r.errs[idx] != nil {
		return roles.Action{}, r.errs[idx]
	}
	if idx >= len(r.actions) {
		return r.actions[len(r.actions)-1], nil
	}
	return r.actions[idx], nil
}

func newEngine(t *testing.T, set roles.Set, cfg workflow.Config, opts ...workflow.Option) *workflow.Engine {
	t.Helper()
	engine, err := workflow.New(set, roles.Instructions{}, cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	return engine
}

func TestRunProducesOrderedSections(t *testing.T) {
	sec1 := testsupport.Section(1, 2)
	sec2 := testsupport.Section(2, 3)

	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Analyzed(testsupport.Analysis("Episode One")),
		}},
		Planner: &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{
			roles.Planned("intro, then a deep dive"),
			roles.SectionAdvanced(1),
			roles.SectionAdvanced(2),
			roles.WrappedUp(),
		}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{
			roles.SectionWritten(1, &sec1),
			roles.SectionWritten(2, &sec2),
		}},
		Editor: &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{
			roles.SectionApproved(1),
			roles.SectionApproved(2),
		}},
	}

	var approved []int
	engine := newEngine(t, set, workflow.Config{}, workflow.WithSectionApprovedHook(func(sec script.Section) error {
		approved = append(approved, sec.SectionID)
		return nil
	}))

	snap, trace, err := engine.Run(context.Background(), "source document")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !snap.Complete {
		t.Fatal("expected completed snapshot")
	}
	if got := snap.SectionIDs(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected section ids: %v", got)
	}
	if len(approved) != 2 || approved[0] != 1 || approved[1] != 2 {
		t.Fatalf("hook fired out of order: %v", approved)
	}
	if len(trace) != 9 {
		t.Fatalf("expected 9 transitions, got %d", len(trace))
	}
	last := trace[len(trace)-1]
	if last.Kind != roles.KindWrappedUp || last.To != workflow.StateDone {
		t.Fatalf("unexpected final transition: %+v", last)
	}
}

func TestRunForcesApprovalAtRevisionLimit(t *testing.T) {
	sec := testsupport.Section(1, 2)

	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Analyzed(testsupport.Analysis("Stubborn Editor")),
		}},
		Planner: &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{
			roles.SectionAdvanced(1),
			roles.WrappedUp(),
		}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{
			roles.SectionWritten(1, &sec),
		}},
		Editor: &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{
			roles.ReviewRequested(1, "tighten the opening"),
		}},
	}

	engine := newEngine(t, set, workflow.Config{RevisionLimit: 2})
	snap, _, err := engine.Run(context.Background(), "source document")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !snap.Complete {
		t.Fatal("expected completed snapshot despite rejections")
	}
	if got := snap.FeedbackCount(1); got != 2 {
		t.Fatalf("expected exactly 2 feedback notes, got %d", got)
	}
	if len(snap.Warnings) == 0 {
		t.Fatal("expected a forced-approval warning")
	}
	if _, ok := snap.SectionScripts[1]; !ok {
		t.Fatal("expected section 1 to be kept")
	}
}

func TestRunStopsAtRoundBudget(t *testing.T) {
	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Analyzed(testsupport.Analysis("Stuck Planner")),
		}},
		Planner: &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{
			roles.Planned("still planning"),
		}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{roles.WrappedUp()}},
		Editor:    &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{roles.WrappedUp()}},
	}

	engine := newEngine(t, set, workflow.Config{RoundBudget: 10})
	snap, trace, err := engine.Run(context.Background(), "source document")
	if !errors.Is(err, services.ErrBudget) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if len(trace) == 0 || trace[len(trace)-1].To != workflow.StateFailed {
		t.Fatalf("expected trace to end in failed state: %+v", trace)
	}
	if len(snap.Errors) == 0 {
		t.Fatal("expected error recorded on snapshot")
	}
}

func TestRunRejectsDisallowedAction(t *testing.T) {
	sec := testsupport.Section(1, 1)

	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Analyzed(testsupport.Analysis("Confused Generator")),
		}},
		Planner: &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{
			roles.SectionAdvanced(1),
			roles.WrappedUp(),
		}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{
			roles.Planned("generator must not plan"),
			roles.SectionWritten(1, &sec),
		}},
		Editor: &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{
			roles.SectionApproved(1),
		}},
	}

	engine := newEngine(t, set, workflow.Config{})
	snap, trace, err := engine.Run(context.Background(), "source document")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !snap.Complete {
		t.Fatal("expected run to recover and complete")
	}

	var rejected bool
	for _, tr := range trace {
		if tr.From == workflow.StateGenerating && tr.To == workflow.StateGenerating && tr.Kind == roles.KindPlanned {
			rejected = true
		}
	}
	if !rejected {
		t.Fatal("expected a same-state transition for the disallowed action")
	}
	if len(snap.Errors) == 0 {
		t.Fatal("expected the violation on the snapshot error log")
	}
}

func TestRunRetriesRejectedMutation(t *testing.T) {
	good := testsupport.Section(1, 1)
	bad := testsupport.Section(1, 1)
	bad.Segments[0].Speaker = ""

	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Analyzed(testsupport.Analysis("Sloppy Draft")),
		}},
		Planner: &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{
			roles.SectionAdvanced(1),
			roles.WrappedUp(),
		}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{
			roles.SectionWritten(1, &bad),
			roles.SectionWritten(1, &good),
		}},
		Editor: &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{
			roles.SectionApproved(1),
		}},
	}

	engine := newEngine(t, set, workflow.Config{})
	snap, _, err := engine.Run(context.Background(), "source document")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !snap.Complete {
		t.Fatal("expected completion after retry")
	}
	if len(snap.Errors) == 0 {
		t.Fatal("expected rejected draft to be recorded")
	}
}

func TestRunRejectsSectionWrittenOffCursor(t *testing.T) {
	stray := testsupport.Section(5, 1)
	good := testsupport.Section(1, 1)

	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Analyzed(testsupport.Analysis("Wandering Generator")),
		}},
		Planner: &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{
			roles.SectionAdvanced(1),
			roles.WrappedUp(),
		}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{
			roles.SectionWritten(5, &stray),
			roles.SectionWritten(1, &good),
		}},
		Editor: &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{
			roles.SectionApproved(1),
		}},
	}

	engine := newEngine(t, set, workflow.Config{})
	snap, trace, err := engine.Run(context.Background(), "source document")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !snap.Complete {
		t.Fatal("expected completion after the stray write was rejected")
	}
	if got := snap.SectionIDs(); len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected section ids: %v", got)
	}
	if len(snap.Errors) == 0 {
		t.Fatal("expected stray write to be recorded as an error")
	}
	var rejected bool
	for _, step := range trace {
		if step.Kind == roles.KindSectionWritten && step.From == workflow.StateGenerating && step.To == workflow.StateGenerating {
			rejected = true
		}
	}
	if !rejected {
		t.Fatal("expected a same-state transition for the rejected write")
	}
}

func TestRunSurfacesRoleFailure(t *testing.T) {
	set := roles.Set{
		Analyzer: &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{
			roles.Failed("content unreadable"),
		}},
		Planner:   &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{roles.WrappedUp()}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{roles.WrappedUp()}},
		Editor:    &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{roles.WrappedUp()}},
	}

	engine := newEngine(t, set, workflow.Config{})
	snap, _, err := engine.Run(context.Background(), "source document")
	if !errors.Is(err, services.ErrRole) {
		t.Fatalf("expected role failure, got %v", err)
	}
	if len(snap.Errors) != 1 || snap.Errors[0] != "content unreadable" {
		t.Fatalf("unexpected snapshot errors: %v", snap.Errors)
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set := roles.Set{
		Analyzer:  &scriptedRole{name: roles.RoleAnalyzer, actions: []roles.Action{roles.WrappedUp()}},
		Planner:   &scriptedRole{name: roles.RolePlanner, actions: []roles.Action{roles.WrappedUp()}},
		Generator: &scriptedRole{name: roles.RoleGenerator, actions: []roles.Action{roles.WrappedUp()}},
		Editor:    &scriptedRole{name: roles.RoleEditor, actions: []roles.Action{roles.WrappedUp()}},
	}

	engine := newEngine(t, set, workflow.Config{})
	if _, _, err := engine.Run(ctx, "source document"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsIncompleteSet(t *testing.T) {
	_, err := workflow.New(roles.Set{}, roles.Instructions{}, workflow.Config{}, logging.NewNop())
	if err == nil {
		t.Fatal("expected error for empty role set")
	}
}
