package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"podforge/internal/script"
	"podforge/internal/services"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"

// ElevenLabs synthesizes speech through the ElevenLabs text-to-speech API,
// forwarding the speaker's voice settings (stability, similarity boost,
// style) when bound.
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ElevenLabsConfig configures the ElevenLabs backend.
type ElevenLabsConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// NewElevenLabs constructs the ElevenLabs provider.
func NewElevenLabs(cfg ElevenLabsConfig) *ElevenLabs {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = elevenLabsDefaultBaseURL
	}
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.TimeoutSeconds),
	}
}

func (e *ElevenLabs) ID() string { return "elevenlabs" }

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

// Synthesize returns MP3 bytes for the given text in the speaker's voice.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, speaker script.Speaker) ([]byte, error) {
	if e.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "elevenlabs", "synthesize", "api key required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "elevenlabs", "synthesize", "empty text", nil)
	}
	voiceID := strings.TrimSpace(speaker.VoiceID)
	if voiceID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "elevenlabs", "synthesize",
			fmt.Sprintf("speaker %q has no voice id", speaker.Name), nil)
	}

	model := strings.TrimSpace(speaker.VoiceModel)
	if model == "" {
		model = "eleven_multilingual_v2"
	}
	payload := elevenLabsRequest{Text: text, ModelID: model}
	if vs := speaker.VoiceSettings; vs != nil {
		payload.VoiceSettings = &elevenLabsVoiceSettings{
			Stability:       vs.Stability,
			SimilarityBoost: vs.SimilarityBoost,
			Style:           vs.Style,
			UseSpeakerBoost: vs.SpeakerBoost,
		}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesize: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs synthesize: new request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError("elevenlabs", "synthesize", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransportError("elevenlabs", "synthesize", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("elevenlabs", "synthesize", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrProvider, "elevenlabs", "synthesize", "empty audio payload", errors.New("zero bytes"))
	}
	return body, nil
}
