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

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAI synthesizes speech through the OpenAI audio API.
type OpenAI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// OpenAIConfig configures the OpenAI backend.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// NewOpenAI constructs the OpenAI provider.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAI{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		httpClient: newHTTPClient(cfg.TimeoutSeconds),
	}
}

func (o *OpenAI) ID() string { return "openai" }

type openAISpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize returns MP3 bytes for the given text in the speaker's voice.
func (o *OpenAI) Synthesize(ctx context.Context, text string, speaker script.Speaker) ([]byte, error) {
	if o.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "openai", "synthesize", "api key required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "openai", "synthesize", "empty text", nil)
	}

	model := strings.TrimSpace(speaker.VoiceModel)
	if model == "" {
		model = "tts-1"
	}
	payload := openAISpeechRequest{
		Model:          model,
		Voice:          speaker.VoiceID,
		Input:          text,
		ResponseFormat: "mp3",
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai synthesize: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/audio/speech", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("openai synthesize: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError("openai", "synthesize", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransportError("openai", "synthesize", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("openai", "synthesize", resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, services.Wrap(services.ErrProvider, "openai", "synthesize", "empty audio payload", errors.New("zero bytes"))
	}
	return body, nil
}
