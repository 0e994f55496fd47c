package roles_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"podforge/internal/llm"
	"podforge/internal/logging"
	"podforge/internal/roles"
	"podforge/internal/state"
	"podforge/internal/testsupport"
)

// stubClient returns an llm.Client whose completions always answer with the
// given JSON payload.
func stubClient(t *testing.T, payload string) *llm.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": payload}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return llm.NewClient(llm.Config{APIKey: "test", BaseURL: server.URL, Model: "m"})
}

func TestAnalyzerReturnsAnalysis(t *testing.T) {
	payload, err := json.Marshal(testsupport.Analysis("Quantum Coffee"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	analyzer := roles.NewAnalyzer(stubClient(t, string(payload)), logging.NewNop())

	action, err := analyzer.Act(context.Background(), state.New("an article"), "analyze")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindAnalyzed {
		t.Fatalf("kind %s", action.Kind)
	}
	if action.Analysis == nil || action.Analysis.Title != "Quantum Coffee" {
		t.Fatalf("analysis %+v", action.Analysis)
	}
}

func TestAnalyzerFailsOnEmptyContent(t *testing.T) {
	analyzer := roles.NewAnalyzer(stubClient(t, "{}"), logging.NewNop())
	action, err := analyzer.Act(context.Background(), state.New("   "), "analyze")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindFailed {
		t.Fatalf("kind %s", action.Kind)
	}
}

func plannerSnapshot(t *testing.T) state.Snapshot {
	t.Helper()
	snap, err := state.New("content").WithAnalysis(testsupport.Analysis("Episode"))
	if err != nil {
		t.Fatalf("WithAnalysis: %v", err)
	}
	return snap
}

func TestPlannerCommands(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    roles.Kind
		section int
	}{
		{"plan", `{"command":"plan","plan":"intro then depth"}`, roles.KindPlanned, 0},
		{"advance explicit", `{"command":"advance","section_id":1}`, roles.KindSectionAdvanced, 1},
		{"advance defaults to next", `{"command":"advance"}`, roles.KindSectionAdvanced, 1},
		{"wrap up", `{"command":"wrap_up"}`, roles.KindWrappedUp, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			planner := roles.NewPlanner(stubClient(t, tc.payload), logging.NewNop())
			action, err := planner.Act(context.Background(), plannerSnapshot(t), "plan")
			if err != nil {
				t.Fatalf("Act: %v", err)
			}
			if action.Kind != tc.want {
				t.Fatalf("kind %s, want %s", action.Kind, tc.want)
			}
			if action.SectionID != tc.section {
				t.Fatalf("section %d, want %d", action.SectionID, tc.section)
			}
		})
	}
}

func TestPlannerFailsWithoutAnalysis(t *testing.T) {
	planner := roles.NewPlanner(stubClient(t, `{"command":"wrap_up"}`), logging.NewNop())
	action, err := planner.Act(context.Background(), state.New("content"), "plan")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindFailed {
		t.Fatalf("kind %s", action.Kind)
	}
}

func TestPlannerRejectsUnknownCommand(t *testing.T) {
	planner := roles.NewPlanner(stubClient(t, `{"command":"dance"}`), logging.NewNop())
	if _, err := planner.Act(context.Background(), plannerSnapshot(t), "plan"); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func generatorSnapshot(t *testing.T) state.Snapshot {
	t.Helper()
	snap := plannerSnapshot(t)
	snap, err := snap.WithPlan("one section about everything")
	if err != nil {
		t.Fatalf("WithPlan: %v", err)
	}
	snap, err = snap.AdvanceTo(1)
	if err != nil {
		t.Fatalf("AdvanceTo: %v", err)
	}
	return snap
}

func TestGeneratorWritesSection(t *testing.T) {
	section := testsupport.Section(1, 2)
	payload, err := json.Marshal(section)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	generator := roles.NewGenerator(stubClient(t, string(payload)), logging.NewNop())

	action, err := generator.Act(context.Background(), generatorSnapshot(t), "write")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindSectionWritten || action.SectionID != 1 {
		t.Fatalf("action %+v", action)
	}
	if action.Section == nil || len(action.Section.Segments) != 2 {
		t.Fatalf("section %+v", action.Section)
	}
}

func TestGeneratorFillsMissingSectionID(t *testing.T) {
	section := testsupport.Section(1, 1)
	section.SectionID = 0
	payload, err := json.Marshal(section)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	generator := roles.NewGenerator(stubClient(t, string(payload)), logging.NewNop())

	action, err := generator.Act(context.Background(), generatorSnapshot(t), "write")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Section == nil || action.Section.SectionID != 1 {
		t.Fatalf("section id not filled from cursor: %+v", action.Section)
	}
}

func TestGeneratorFailsWithoutCursor(t *testing.T) {
	generator := roles.NewGenerator(stubClient(t, "{}"), logging.NewNop())
	action, err := generator.Act(context.Background(), plannerSnapshot(t), "write")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindFailed {
		t.Fatalf("kind %s", action.Kind)
	}
}

func editorSnapshot(t *testing.T) state.Snapshot {
	t.Helper()
	snap := generatorSnapshot(t)
	snap, err := snap.WithSectionScript(1, testsupport.Section(1, 2))
	if err != nil {
		t.Fatalf("WithSectionScript: %v", err)
	}
	return snap
}

func TestEditorApproves(t *testing.T) {
	editor := roles.NewEditor(stubClient(t, `{"approved":true}`), logging.NewNop())
	action, err := editor.Act(context.Background(), editorSnapshot(t), "review")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindSectionApproved || action.SectionID != 1 {
		t.Fatalf("action %+v", action)
	}
}

func TestEditorRequestsRevision(t *testing.T) {
	editor := roles.NewEditor(stubClient(t, `{"approved":false,"feedback":"too abrupt"}`), logging.NewNop())
	action, err := editor.Act(context.Background(), editorSnapshot(t), "review")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindReviewRequested || action.SectionID != 1 {
		t.Fatalf("action %+v", action)
	}
	if action.Feedback != "too abrupt" {
		t.Fatalf("feedback %q", action.Feedback)
	}
}

func TestEditorRejectionWithoutFeedbackGetsDefault(t *testing.T) {
	editor := roles.NewEditor(stubClient(t, `{"approved":false}`), logging.NewNop())
	action, err := editor.Act(context.Background(), editorSnapshot(t), "review")
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if action.Kind != roles.KindReviewRequested || action.Feedback == "" {
		t.Fatalf("expected default feedback, got %+v", action)
	}
}

func TestAllowedFor(t *testing.T) {
	if !roles.AllowedFor(roles.RolePlanner, roles.KindWrappedUp) {
		t.Fatal("planner should wrap up")
	}
	if roles.AllowedFor(roles.RoleGenerator, roles.KindPlanned) {
		t.Fatal("generator must not plan")
	}
	if !roles.AllowedFor(roles.RoleEditor, roles.KindFailed) {
		t.Fatal("every role may fail")
	}
}

func TestSetValidate(t *testing.T) {
	client := stubClient(t, "{}")
	full := roles.Set{
		Analyzer:  roles.NewAnalyzer(client, logging.NewNop()),
		Planner:   roles.NewPlanner(client, logging.NewNop()),
		Generator: roles.NewGenerator(client, logging.NewNop()),
		Editor:    roles.NewEditor(client, logging.NewNop()),
	}
	if err := full.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := (roles.Set{}).Validate(); err == nil {
		t.Fatal("expected error for empty set")
	}
}
