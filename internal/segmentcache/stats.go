package segmentcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Stats summarizes the artifacts held in one cache directory.
type Stats struct {
	Artifacts  int
	TotalBytes int64
}

// Measure walks a cache directory and totals its audio artifacts. A missing
// directory is reported as empty, not as an error.
func Measure(dir string) (Stats, error) {
	var stats Stats
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("read segment cache directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mp3" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Artifacts++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// Clear removes every cached artifact under dir. The directory itself is
// removed; the next synthesis run recreates it.
func Clear(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear segment cache: %w", err)
	}
	return nil
}
