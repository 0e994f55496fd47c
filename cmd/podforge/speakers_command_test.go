package main

import "testing"

func TestSpeakersListsConfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"speakers"}, env.configPath)
	if err != nil {
		t.Fatalf("speakers: %v", err)
	}
	requireContains(t, out, "speaker1")
	requireContains(t, out, "speaker2")
	requireContains(t, out, "openai")
	requireContains(t, out, "alloy")
}
