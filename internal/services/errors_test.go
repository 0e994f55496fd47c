package services_test

import (
	"errors"
	"fmt"
	"testing"

	"podforge/internal/services"
)

func TestWrapClassification(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "script", "section", "bad id", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification: %v", err)
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatalf("unexpected transient classification: %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := services.Wrap(services.ErrTransient, "tts", "synthesize", "request failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatalf("expected retryable: %v", err)
	}
}

func TestWrapDefaultsNilMarker(t *testing.T) {
	err := services.Wrap(nil, "x", "y", "z", nil)
	if !services.IsRetryable(err) {
		t.Fatalf("nil marker should default to transient: %v", err)
	}
}

func TestWrapRoleFailureIsNotProviderFailure(t *testing.T) {
	err := services.Wrap(services.ErrRole, "workflow", "run", "analyzer gave up", nil)
	if !errors.Is(err, services.ErrRole) {
		t.Fatalf("expected role classification: %v", err)
	}
	if errors.Is(err, services.ErrProvider) {
		t.Fatalf("unexpected provider classification: %v", err)
	}
	if got := services.Message(err); got != "workflow: run: analyzer gave up" {
		t.Fatalf("Message = %q", got)
	}
}

func TestMessageStripsSentinel(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "config", "validate", "missing key", nil)
	if got := services.Message(err); got != "config: validate: missing key" {
		t.Fatalf("Message = %q", got)
	}
	if got := services.Message(nil); got != "" {
		t.Fatalf("Message(nil) = %q", got)
	}
}
