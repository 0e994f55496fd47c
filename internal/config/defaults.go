package config

import "podforge/internal/script"

// Default returns the baseline configuration. Credentials are left empty
// and must come from the config file or environment.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: "~/.local/share/podforge/runs",
			LogDir:  "~/.local/share/podforge/logs",
		},
		Show: script.Show{
			Name:        "Untitled Show",
			About:       "A conversational podcast covering one source document per episode.",
			Language:    "en",
			MinSegments: 15,
			MaxSegments: 40,
		},
		Speakers: map[string]script.Speaker{
			"speaker1": {
				Name:     "speaker1",
				About:    "The host. Curious, keeps the conversation moving.",
				Provider: "openai",
				VoiceID:  "alloy",
			},
			"speaker2": {
				Name:     "speaker2",
				About:    "The expert guest. Explains and reacts.",
				Provider: "openai",
				VoiceID:  "echo",
			},
		},
		LLM: LLM{
			BaseURL:        "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o",
			TimeoutSeconds: 120,
		},
		TTS: TTS{
			OpenAIBaseURL:     "https://api.openai.com/v1",
			ElevenLabsBaseURL: "https://api.elevenlabs.io",
			HumeBaseURL:       "https://api.hume.ai",
			RequestTimeout:    120,
		},
		Workflow: Workflow{
			RevisionLimit:    3,
			RoundBudget:      150,
			SynthesisWorkers: 4,
		},
		Audio: Audio{
			FFmpegBinary: "ffmpeg",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
