package segmentcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"podforge/internal/logging"
	"podforge/internal/services"
	"podforge/internal/textutil"
)

// Dir is the per-run directory holding cached segment artifacts.
const Dir = "segments"

// Fingerprint returns the deterministic cache key for a (text, speaker) pair.
// Text is sanitized before hashing so formatting and TTS-unsafe punctuation
// differences do not produce distinct keys.
func Fingerprint(text, speakerKey string) string {
	sanitized := textutil.SanitizeSpeech(text)
	sum := sha256.Sum256([]byte(speakerKey + "\x00" + sanitized))
	return hex.EncodeToString(sum[:16])
}

// SynthFunc produces audio bytes for a cache miss.
type SynthFunc func(ctx context.Context) ([]byte, error)

// Cache is an on-disk content-addressed store of synthesized segment audio.
// Artifacts are created lazily on first synthesis of a (text, speaker) pair,
// never mutated, and reused across runs when present.
type Cache struct {
	dir    string
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// New creates the cache rooted at dir, creating the directory if needed.
func New(dir string, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create segment cache directory: %w", err)
	}
	return &Cache{
		dir:      dir,
		logger:   logging.NewComponentLogger(logger, "segmentcache"),
		inflight: make(map[string]chan struct{}),
	}, nil
}

// ArtifactName returns the position-qualified artifact file name; re-running
// with identical text and speaker reuses the file without recomputation.
func ArtifactName(sectionID, segmentID int, key string) string {
	return fmt.Sprintf("%d_%d_%s.mp3", sectionID, segmentID, key)
}

// Lookup returns the path of a usable artifact for the key, if any exists.
// An artifact is matched by fingerprint regardless of which position first
// produced it, so identical segments share one file. Unreadable or empty
// artifacts are treated as cache misses and removed.
func (c *Cache) Lookup(key string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*_"+key+".mp3"))
	if err != nil {
		return "", false
	}
	for _, path := range matches {
		if c.usable(path) {
			return path, true
		}
		// Corrupted artifact: force resynthesis rather than failing the run.
		c.logger.Warn("removing corrupted cache artifact",
			logging.String(logging.FieldEventType, "cache_corruption"),
			logging.String("path", path))
		_ = os.Remove(path)
	}
	return "", false
}

func (c *Cache) usable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Resolve returns the artifact path for the keyed segment, synthesizing and
// persisting it on a miss. Concurrent resolves for the same key wait for the
// first in-flight synthesis instead of duplicating the provider call.
func (c *Cache) Resolve(ctx context.Context, sectionID, segmentID int, key string, synth SynthFunc) (string, error) {
	for {
		if path, ok := c.Lookup(key); ok {
			return path, nil
		}

		c.mu.Lock()
		if ch, busy := c.inflight[key]; busy {
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-ch:
			}
			// The winner persisted (or failed); re-check the disk.
			continue
		}
		ch := make(chan struct{})
		c.inflight[key] = ch
		c.mu.Unlock()

		path, err := c.synthesize(ctx, sectionID, segmentID, key, synth)

		c.mu.Lock()
		delete(c.inflight, key)
		close(ch)
		c.mu.Unlock()

		return path, err
	}
}

func (c *Cache) synthesize(ctx context.Context, sectionID, segmentID int, key string, synth SynthFunc) (string, error) {
	audio, err := synth(ctx)
	if err != nil {
		return "", err
	}
	if len(audio) == 0 {
		return "", services.Wrap(services.ErrProvider, "segmentcache", "synthesize", "provider returned empty audio", nil)
	}

	path := filepath.Join(c.dir, ArtifactName(sectionID, segmentID, key))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return "", fmt.Errorf("write segment artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename segment artifact: %w", err)
	}

	c.logger.Debug("segment synthesized",
		logging.Int(logging.FieldSectionID, sectionID),
		logging.Int(logging.FieldSegmentID, segmentID),
		logging.String("fingerprint", key),
		logging.Int("bytes", len(audio)))
	return path, nil
}
