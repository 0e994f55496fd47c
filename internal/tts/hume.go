package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"podforge/internal/script"
	"podforge/internal/services"
)

const humeDefaultBaseURL = "https://api.hume.ai"

// Hume synthesizes speech through the Hume TTS API. It keeps the last
// generation id per speaker and passes it back as continuation context so
// consecutive utterances from the same speaker stay acoustically consistent.
// That state is scoped to one speaker identity and invisible to callers.
type Hume struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	mu              sync.Mutex
	lastGenerations map[string]string // speaker name -> generation id
}

// HumeConfig configures the Hume backend.
type HumeConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// NewHume constructs the Hume provider.
func NewHume(cfg HumeConfig) *Hume {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = humeDefaultBaseURL
	}
	return &Hume{
		apiKey:          strings.TrimSpace(cfg.APIKey),
		baseURL:         baseURL,
		httpClient:      newHTTPClient(cfg.TimeoutSeconds),
		lastGenerations: make(map[string]string),
	}
}

func (h *Hume) ID() string { return "hume" }

type humeUtterance struct {
	Text  string    `json:"text"`
	Voice humeVoice `json:"voice"`
}

type humeVoice struct {
	ID string `json:"id"`
}

type humeContext struct {
	GenerationID string `json:"generation_id"`
}

type humeRequest struct {
	Utterances []humeUtterance `json:"utterances"`
	Context    *humeContext    `json:"context,omitempty"`
}

type humeResponse struct {
	Generations []struct {
		GenerationID string `json:"generation_id"`
		Audio        string `json:"audio"`
	} `json:"generations"`
}

// Synthesize returns decoded audio bytes for the given text in the speaker's
// voice, threading the speaker's previous generation id when available.
func (h *Hume) Synthesize(ctx context.Context, text string, speaker script.Speaker) ([]byte, error) {
	if h.apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "hume", "synthesize", "api key required", nil)
	}
	if strings.TrimSpace(text) == "" {
		return nil, services.Wrap(services.ErrValidation, "hume", "synthesize", "empty text", nil)
	}

	payload := humeRequest{
		Utterances: []humeUtterance{{Text: text, Voice: humeVoice{ID: speaker.VoiceID}}},
	}
	h.mu.Lock()
	if generationID, ok := h.lastGenerations[speaker.Name]; ok {
		payload.Context = &humeContext{GenerationID: generationID}
	}
	h.mu.Unlock()

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hume synthesize: encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v0/tts", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("hume synthesize: new request: %w", err)
	}
	req.Header.Set("X-Hume-Api-Key", h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError("hume", "synthesize", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransportError("hume", "synthesize", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("hume", "synthesize", resp.StatusCode, string(body))
	}

	var decoded humeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrProvider, "hume", "synthesize", "decode response", err)
	}
	if len(decoded.Generations) == 0 {
		return nil, services.Wrap(services.ErrProvider, "hume", "synthesize", "no generations in response", errors.New("empty generations"))
	}

	generation := decoded.Generations[0]
	audio, err := base64.StdEncoding.DecodeString(generation.Audio)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "hume", "synthesize", "decode audio", err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrProvider, "hume", "synthesize", "empty audio payload", errors.New("zero bytes"))
	}

	h.mu.Lock()
	h.lastGenerations[speaker.Name] = generation.GenerationID
	h.mu.Unlock()

	return audio, nil
}
