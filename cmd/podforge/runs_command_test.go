package main

import (
	"context"
	"path/filepath"
	"testing"

	"podforge/internal/runstore"
)

func seedRun(t *testing.T, env *cliTestEnv, id, title string, status runstore.Status) {
	t.Helper()
	store, err := runstore.Open(filepath.Join(env.logDir, "runs.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.CreateRun(ctx, id, title, filepath.Join(env.workDir, id)); err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.UpdateStatus(ctx, id, status, ""); err != nil {
		t.Fatalf("update status: %v", err)
	}
	records := []runstore.TransitionRecord{
		{RunID: id, Seq: 1, FromState: "ANALYZING", Action: "analysis", ToState: "PLANNING"},
		{RunID: id, Seq: 2, FromState: "PLANNING", Action: "advance", ToState: "GENERATING", SectionID: 1},
	}
	if err := store.RecordTransitions(ctx, id, records); err != nil {
		t.Fatalf("record transitions: %v", err)
	}
}

func TestRunsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded yet.")
}

func TestRunsListShowsSeededRun(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRun(t, env, "0a1b2c3d-0000-0000-0000-000000000000", "The Big Episode", runstore.StatusCompleted)

	out, _, err := runCLI(t, []string{"runs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "0a1b2c3d")
	requireContains(t, out, "The Big Episode")
	requireContains(t, out, "Completed")
}

func TestRunsShowResolvesPrefix(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRun(t, env, "0a1b2c3d-0000-0000-0000-000000000000", "The Big Episode", runstore.StatusFailed)

	out, _, err := runCLI(t, []string{"runs", "show", "0a1b2c3d"}, env.configPath)
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "0a1b2c3d-0000-0000-0000-000000000000")
	requireContains(t, out, "The Big Episode")
	requireContains(t, out, "ANALYZING")
	requireContains(t, out, "advance")
}

func TestRunsShowRejectsUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"runs", "show", "deadbeef"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown run id")
	}
}
