package tts

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"podforge/internal/script"
	"podforge/internal/services"
)

// Provider is an interchangeable speech-synthesis backend. Implementations
// may keep state across calls for the same speaker (synthesis continuity),
// but that state is invisible to callers. Providers must never branch on the
// text content itself.
type Provider interface {
	ID() string
	Synthesize(ctx context.Context, text string, speaker script.Speaker) ([]byte, error)
}

// Registry resolves a speaker's bound provider id to a backend.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the supplied providers.
func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if p == nil {
			continue
		}
		reg.providers[strings.ToLower(strings.TrimSpace(p.ID()))] = p
	}
	return reg
}

// Lookup returns the provider bound to the given id.
func (r *Registry) Lookup(id string) (Provider, error) {
	provider, ok := r.providers[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "lookup",
			fmt.Sprintf("no provider registered for id %q (have %s)", id, strings.Join(r.IDs(), ", ")), nil)
	}
	return provider, nil
}

// IDs returns the registered provider ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

const defaultRequestTimeout = 120 * time.Second

func newHTTPClient(timeoutSeconds int) *http.Client {
	timeout := defaultRequestTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// classifyStatus maps an HTTP failure to the error taxonomy: rate limiting and
// server faults are transient (retryable with backoff); everything else is a
// permanent provider failure.
func classifyStatus(provider, operation string, status int, body string) error {
	detail := fmt.Sprintf("http %d: %s", status, strings.TrimSpace(body))
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return services.Wrap(services.ErrTransient, provider, operation, detail, nil)
	default:
		return services.Wrap(services.ErrProvider, provider, operation, detail, nil)
	}
}

func wrapTransportError(provider, operation string, err error) error {
	// Network-level failures are assumed transient; the retry ceiling in the
	// pipeline converts persistent ones into fatal errors.
	return services.Wrap(services.ErrTransient, provider, operation, "request failed", err)
}
