package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"podforge/internal/script"
	"podforge/internal/services"
)

// Validate checks the configuration for invalid values. Credentials are not
// checked here because the required providers depend on the speakers a run
// actually uses.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "paths.work_dir must be set", nil)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "paths.log_dir must be set", nil)
	}

	if strings.TrimSpace(c.Show.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "show.name must be set", nil)
	}
	if _, err := language.Parse(c.Show.Language); err != nil {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("show.language %q is not a valid BCP 47 tag", c.Show.Language), err)
	}
	if c.Show.MinSegments <= 0 || c.Show.MaxSegments <= 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "show segment bounds must be positive", nil)
	}
	if c.Show.MinSegments > c.Show.MaxSegments {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("show.min_segments (%d) exceeds show.max_segments (%d)", c.Show.MinSegments, c.Show.MaxSegments), nil)
	}

	if len(c.Speakers) == 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "at least one speaker must be configured", nil)
	}
	for key, speaker := range c.Speakers {
		if err := validateSpeaker(key, speaker); err != nil {
			return err
		}
	}

	if strings.TrimSpace(c.LLM.Model) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "llm.model must be set", nil)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "llm.timeout_seconds cannot be negative", nil)
	}

	if c.Workflow.RevisionLimit < 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "workflow.revision_limit cannot be negative", nil)
	}
	if c.Workflow.RoundBudget <= 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "workflow.round_budget must be positive", nil)
	}
	if c.Workflow.SynthesisWorkers <= 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", "workflow.synthesis_workers must be positive", nil)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format), nil)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level), nil)
	}

	return nil
}

func validateSpeaker(key string, speaker script.Speaker) error {
	if strings.TrimSpace(speaker.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("speaker %q has no name", key), nil)
	}
	switch speaker.Provider {
	case "openai", "elevenlabs", "hume":
	default:
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("speaker %q has unknown provider %q", key, speaker.Provider), nil)
	}
	if strings.TrimSpace(speaker.VoiceID) == "" {
		return services.Wrap(services.ErrConfiguration, "config", "validate",
			fmt.Sprintf("speaker %q has no voice_id", key), nil)
	}
	if speaker.VoiceSettings != nil {
		if err := speaker.VoiceSettings.Validate(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate",
				fmt.Sprintf("speaker %q voice settings invalid", key), err)
		}
	}
	return nil
}
