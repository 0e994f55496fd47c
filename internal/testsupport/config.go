package testsupport

import (
	"path/filepath"
	"testing"

	"podforge/internal/config"
	"podforge/internal/script"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials get placeholder values so validation passes without touching
// real services.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "runs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	cfg.TTS.OpenAIAPIKey = "test"
	cfg.Workflow.SynthesisWorkers = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSpeaker adds or replaces a speaker on the test config.
func WithSpeaker(key string, speaker script.Speaker) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Speakers[key] = speaker
	}
}

// WithRevisionLimit overrides the engine's per-section feedback cap.
func WithRevisionLimit(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.RevisionLimit = limit
	}
}
