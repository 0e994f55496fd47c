package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"podforge/internal/logging"
	"podforge/internal/script"
	"podforge/internal/segmentcache"
	"podforge/internal/services"
	"podforge/internal/textutil"
	"podforge/internal/tts"
)

// Config bounds assembler behavior.
type Config struct {
	// Workers caps concurrent cache-miss synthesis calls. Assembly order is
	// unaffected; results are re-serialized before concatenation.
	Workers int
	// RetryAttempts is the synthesis retry ceiling per segment.
	RetryAttempts int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

const (
	defaultWorkers       = 4
	defaultRetryAttempts = 5
	defaultRetryBase     = 1 * time.Second
	defaultRetryMax      = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBase
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = defaultRetryMax
	}
	return c
}

// Assembler converts an approved script into one normalized audio track.
type Assembler struct {
	cache    *segmentcache.Cache
	registry *tts.Registry
	speakers map[string]script.Speaker
	ffmpeg   Commander
	cfg      Config
	logger   *slog.Logger
	sleeper  func(time.Duration)
}

// NewAssembler constructs the assembly pipeline.
func NewAssembler(cache *segmentcache.Cache, registry *tts.Registry, speakers map[string]script.Speaker, ffmpeg Commander, cfg Config, logger *slog.Logger) *Assembler {
	return &Assembler{
		cache:    cache,
		registry: registry,
		speakers: speakers,
		ffmpeg:   ffmpeg,
		cfg:      cfg.withDefaults(),
		logger:   logging.NewComponentLogger(logger, "audio"),
	}
}

// WithSleeper overrides retry sleeps (used in tests).
func (a *Assembler) WithSleeper(sleeper func(time.Duration)) *Assembler {
	a.sleeper = sleeper
	return a
}

type flatSegment struct {
	sectionID int
	segment   script.Segment
}

// Assemble flattens the sections in ascending id order, resolves every
// segment to a cached or freshly synthesized clip, appends trailing silence
// where the script asks for it, concatenates everything in script order, and
// applies one loudness-normalization pass to produce outPath.
func (a *Assembler) Assemble(ctx context.Context, sections []script.Section, outPath string) error {
	if len(sections) == 0 {
		return services.Wrap(services.ErrValidation, "audio", "assemble", "no sections to assemble", nil)
	}
	for i := range sections {
		if err := sections[i].Validate(); err != nil {
			return err
		}
	}

	flattened := flatten(sections)
	a.logger.Info("assembly started",
		logging.String(logging.FieldEventType, "assembly_start"),
		logging.Int("sections", len(sections)),
		logging.Int("segments", len(flattened)))

	clipPaths, err := a.resolveClips(ctx, flattened)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(outPath), "assembly-")
	if err != nil {
		return fmt.Errorf("create assembly temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	listPath, err := a.writeConcatList(ctx, tempDir, flattened, clipPaths)
	if err != nil {
		return err
	}

	combined := filepath.Join(tempDir, "combined.mp3")
	if err := a.ffmpeg.Concat(ctx, listPath, combined); err != nil {
		return services.Wrap(services.ErrProvider, "audio", "concat", "join segment clips", err)
	}
	if err := a.ffmpeg.Normalize(ctx, combined, outPath); err != nil {
		return services.Wrap(services.ErrProvider, "audio", "normalize", "loudness normalization", err)
	}

	a.logger.Info("assembly complete",
		logging.String(logging.FieldEventType, "assembly_complete"),
		logging.String("output", outPath))
	return nil
}

func flatten(sections []script.Section) []flatSegment {
	ordered := make([]script.Section, len(sections))
	copy(ordered, sections)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SectionID < ordered[j].SectionID })

	var flattened []flatSegment
	for _, section := range ordered {
		for _, segment := range section.Segments {
			flattened = append(flattened, flatSegment{sectionID: section.SectionID, segment: segment})
		}
	}
	return flattened
}

// resolveClips maps every flattened segment to an artifact path. Cache-miss
// synthesis runs on a bounded worker pool; results land in a slice indexed by
// original position so concurrency can never reorder the output.
func (a *Assembler) resolveClips(parent context.Context, flattened []flatSegment) ([]string, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	paths := make([]string, len(flattened))
	jobs := make(chan int)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	workers := a.cfg.Workers
	if workers > len(flattened) {
		workers = len(flattened)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				path, err := a.resolveClip(ctx, flattened[idx])
				if err != nil {
					fail(err)
					return
				}
				paths[idx] = path
			}
		}()
	}

feed:
	for idx := range flattened {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (a *Assembler) resolveClip(ctx context.Context, item flatSegment) (string, error) {
	speaker, ok := a.speakers[item.segment.Speaker]
	if !ok {
		return "", services.Wrap(services.ErrConfiguration, "audio", "resolve",
			fmt.Sprintf("section %d segment %d references unknown speaker %q",
				item.sectionID, item.segment.ID, item.segment.Speaker), nil)
	}
	provider, err := a.registry.Lookup(speaker.Provider)
	if err != nil {
		return "", err
	}

	text := textutil.SanitizeSpeech(item.segment.Content)
	key := segmentcache.Fingerprint(item.segment.Content, item.segment.Speaker)

	path, err := a.cache.Resolve(ctx, item.sectionID, item.segment.ID, key, func(ctx context.Context) ([]byte, error) {
		return a.synthesizeWithRetry(ctx, provider, text, speaker)
	})
	if err != nil {
		// Identify the offending segment rather than failing opaquely.
		return "", fmt.Errorf("section %d segment %d: %w", item.sectionID, item.segment.ID, err)
	}
	return path, nil
}

// synthesizeWithRetry retries transient provider failures with exponential
// backoff up to the configured ceiling, then converts the failure to a
// permanent one.
func (a *Assembler) synthesizeWithRetry(ctx context.Context, provider tts.Provider, text string, speaker script.Speaker) ([]byte, error) {
	var lastErr error
	delay := a.cfg.RetryBaseDelay

	for attempt := 1; attempt <= a.cfg.RetryAttempts; attempt++ {
		audio, err := provider.Synthesize(ctx, text, speaker)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !services.IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == a.cfg.RetryAttempts {
			break
		}

		a.logger.Warn("transient synthesis failure",
			logging.String(logging.FieldEventType, "synthesis_retry"),
			logging.String("provider", provider.ID()),
			logging.Int("attempt", attempt),
			logging.Error(err))
		if err := a.sleep(ctx, delay); err != nil {
			return nil, err
		}
		if next := delay * 2; next <= a.cfg.RetryMaxDelay {
			delay = next
		} else {
			delay = a.cfg.RetryMaxDelay
		}
	}

	return nil, services.Wrap(services.ErrProvider, "audio", "synthesize",
		fmt.Sprintf("provider %s failed after %d attempts", provider.ID(), a.cfg.RetryAttempts), lastErr)
}

func (a *Assembler) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if a.sleeper != nil {
		a.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// writeConcatList builds the ffmpeg concat demuxer file in script order,
// generating silence clips for trailing blank durations as it goes. Silence
// clips are deduplicated by duration.
func (a *Assembler) writeConcatList(ctx context.Context, tempDir string, flattened []flatSegment, clipPaths []string) (string, error) {
	silenceByMillis := make(map[int]string)
	var list strings.Builder

	for idx, item := range flattened {
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(clipPaths[idx]))

		if item.segment.BlankDuration <= 0 {
			continue
		}
		millis := int(item.segment.BlankDuration * 1000)
		silencePath, ok := silenceByMillis[millis]
		if !ok {
			silencePath = filepath.Join(tempDir, fmt.Sprintf("silence_%dms.mp3", millis))
			if err := a.ffmpeg.Silence(ctx, silencePath, item.segment.BlankDuration); err != nil {
				return "", services.Wrap(services.ErrProvider, "audio", "silence",
					fmt.Sprintf("section %d segment %d", item.sectionID, item.segment.ID), err)
			}
			silenceByMillis[millis] = silencePath
		}
		fmt.Fprintf(&list, "file '%s'\n", escapeConcatPath(silencePath))
	}

	listPath := filepath.Join(tempDir, "concat.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
