package textutil_test

import (
	"testing"

	"podforge/internal/textutil"
)

func TestSanitizeSpeech(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello there.", "Hello there."},
		{"inverted marks", "¡Hola! ¿Qué tal?", "Hola! Qué tal?"},
		{"whitespace collapse", "  one\n\ttwo   three ", "one two three"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeSpeech(tc.in); got != tc.want {
				t.Fatalf("SanitizeSpeech(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := textutil.SanitizeFileName(`ep: one/two?`); got != "ep- one-two" {
		t.Fatalf("got %q", got)
	}
	if got := textutil.SanitizeFileName("  "); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Speaker One": "speaker_one",
		"host-2":      "host-2",
		"":            "unknown",
		"***":         "unknown",
	}
	for in, want := range cases {
		if got := textutil.SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}
