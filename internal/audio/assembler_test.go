package audio_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"podforge/internal/audio"
	"podforge/internal/logging"
	"podforge/internal/script"
	"podforge/internal/segmentcache"
	"podforge/internal/services"
	"podforge/internal/testsupport"
	"podforge/internal/tts"
)

// fakeCommander records the concat list and writes placeholder outputs so the
// pipeline can run without ffmpeg.
type fakeCommander struct {
	concatEntries []string
	silenceCalls  int
	normalized    bool
}

func (f *fakeCommander) Silence(ctx context.Context, path string, seconds float64) error {
	f.silenceCalls++
	return os.WriteFile(path, []byte(fmt.Sprintf("SILENCE:%.3f", seconds)), 0o644)
}

func (f *fakeCommander) Concat(ctx context.Context, listPath, outPath string) error {
	data, err := os.ReadFile(listPath)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimPrefix(line, "file '")
		f.concatEntries = append(f.concatEntries, strings.TrimSuffix(line, "'"))
	}
	return os.WriteFile(outPath, []byte("COMBINED"), 0o644)
}

func (f *fakeCommander) Normalize(ctx context.Context, inPath, outPath string) error {
	f.normalized = true
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}

// fakeProvider synthesizes deterministic bytes and can fail a set number of
// times first.
type fakeProvider struct {
	calls    atomic.Int32
	failures int32
	failWith error
}

func (f *fakeProvider) ID() string { return "fake" }

func (f *fakeProvider) Synthesize(ctx context.Context, text string, speaker script.Speaker) ([]byte, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, f.failWith
	}
	return []byte("AUDIO:" + text), nil
}

func testSpeakers() map[string]script.Speaker {
	return map[string]script.Speaker{
		"speaker1": {Name: "speaker1", Provider: "fake", VoiceID: "v1"},
		"speaker2": {Name: "speaker2", Provider: "fake", VoiceID: "v2"},
	}
}

func newAssembler(t *testing.T, provider tts.Provider, ffmpeg audio.Commander) (*audio.Assembler, string) {
	t.Helper()
	workDir := t.TempDir()
	cache, err := segmentcache.New(filepath.Join(workDir, "segments"), logging.NewNop())
	if err != nil {
		t.Fatalf("segmentcache.New: %v", err)
	}
	assembler := audio.NewAssembler(cache, tts.NewRegistry(provider), testSpeakers(), ffmpeg,
		audio.Config{Workers: 3, RetryBaseDelay: time.Millisecond, RetryMaxDelay: time.Millisecond},
		logging.NewNop()).WithSleeper(func(time.Duration) {})
	return assembler, workDir
}

func TestAssemblePreservesScriptOrder(t *testing.T) {
	provider := &fakeProvider{}
	commander := &fakeCommander{}
	assembler, workDir := newAssembler(t, provider, commander)

	// Sections arrive out of order; assembly must follow ascending ids.
	sections := []script.Section{testsupport.Section(2, 3), testsupport.Section(1, 4)}
	outPath := filepath.Join(workDir, "podcast.mp3")
	if err := assembler.Assemble(context.Background(), sections, outPath); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(commander.concatEntries) != 7 {
		t.Fatalf("expected 7 concat entries, got %d", len(commander.concatEntries))
	}
	var got []string
	for _, path := range commander.concatEntries {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read clip %s: %v", path, err)
		}
		got = append(got, string(data))
	}
	idx := 0
	for _, sec := range []script.Section{testsupport.Section(1, 4), testsupport.Section(2, 3)} {
		for _, seg := range sec.Segments {
			want := "AUDIO:" + seg.Content
			if got[idx] != want {
				t.Fatalf("entry %d = %q, want %q", idx, got[idx], want)
			}
			idx++
		}
	}
	if !commander.normalized {
		t.Fatal("normalization pass missing")
	}
	if data, err := os.ReadFile(outPath); err != nil || string(data) != "COMBINED" {
		t.Fatalf("output not written: %q %v", data, err)
	}
}

func TestAssembleInsertsDedupedSilence(t *testing.T) {
	provider := &fakeProvider{}
	commander := &fakeCommander{}
	assembler, workDir := newAssembler(t, provider, commander)

	sec := testsupport.Section(1, 3)
	sec.Segments[0].BlankDuration = 0.5
	sec.Segments[1].BlankDuration = 0.5
	if err := assembler.Assemble(context.Background(), []script.Section{sec}, filepath.Join(workDir, "out.mp3")); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if commander.silenceCalls != 1 {
		t.Fatalf("expected 1 silence render for equal durations, got %d", commander.silenceCalls)
	}
	// 3 clips plus 2 silence references.
	if len(commander.concatEntries) != 5 {
		t.Fatalf("expected 5 concat entries, got %d", len(commander.concatEntries))
	}
	if commander.concatEntries[1] != commander.concatEntries[3] {
		t.Fatal("silence entries should reference the same file")
	}
}

func TestAssembleRetriesTransientFailures(t *testing.T) {
	provider := &fakeProvider{
		failures: 2,
		failWith: services.Wrap(services.ErrTransient, "tts", "synthesize", "rate limited", nil),
	}
	assembler, workDir := newAssembler(t, provider, &fakeCommander{})

	sec := testsupport.Section(1, 1)
	if err := assembler.Assemble(context.Background(), []script.Section{sec}, filepath.Join(workDir, "out.mp3")); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if provider.calls.Load() != 3 {
		t.Fatalf("expected 3 synthesis attempts, got %d", provider.calls.Load())
	}
}

func TestAssembleStopsOnPermanentFailure(t *testing.T) {
	provider := &fakeProvider{
		failures: 100,
		failWith: services.Wrap(services.ErrProvider, "tts", "synthesize", "voice not found", nil),
	}
	assembler, workDir := newAssembler(t, provider, &fakeCommander{})

	sec := testsupport.Section(1, 1)
	err := assembler.Assemble(context.Background(), []script.Section{sec}, filepath.Join(workDir, "out.mp3"))
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "section 1 segment 1") {
		t.Fatalf("error should name the segment: %v", err)
	}
	if provider.calls.Load() != 1 {
		t.Fatalf("permanent failure must not retry, got %d calls", provider.calls.Load())
	}
}

func TestAssembleRejectsUnknownSpeaker(t *testing.T) {
	assembler, workDir := newAssembler(t, &fakeProvider{}, &fakeCommander{})

	sec := testsupport.Section(1, 1)
	sec.Segments[0].Speaker = "nobody"
	err := assembler.Assemble(context.Background(), []script.Section{sec}, filepath.Join(workDir, "out.mp3"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAssembleReusesCache(t *testing.T) {
	provider := &fakeProvider{}
	assembler, workDir := newAssembler(t, provider, &fakeCommander{})

	sections := []script.Section{testsupport.Section(1, 2)}
	if err := assembler.Assemble(context.Background(), sections, filepath.Join(workDir, "first.mp3")); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	initial := provider.calls.Load()

	if err := assembler.Assemble(context.Background(), sections, filepath.Join(workDir, "second.mp3")); err != nil {
		t.Fatalf("Assemble (cached): %v", err)
	}
	if provider.calls.Load() != initial {
		t.Fatalf("expected no new synthesis, got %d extra", provider.calls.Load()-initial)
	}
}

func TestAssembleRejectsEmptyInput(t *testing.T) {
	assembler, workDir := newAssembler(t, &fakeProvider{}, &fakeCommander{})
	err := assembler.Assemble(context.Background(), nil, filepath.Join(workDir, "out.mp3"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
