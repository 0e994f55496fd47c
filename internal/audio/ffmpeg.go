package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Commander abstracts the ffmpeg operations the assembler needs so tests can
// run without the binary installed.
type Commander interface {
	// Silence writes a silent MP3 clip of the given duration in seconds.
	Silence(ctx context.Context, path string, seconds float64) error
	// Concat joins the clips listed in a concat demuxer file into one track.
	Concat(ctx context.Context, listPath, outPath string) error
	// Normalize applies one loudness-normalization pass to the full track.
	Normalize(ctx context.Context, inPath, outPath string) error
}

// FFmpeg shells out to an ffmpeg binary.
type FFmpeg struct {
	binary string
}

// NewFFmpeg constructs the command wrapper. An empty binary defaults to
// "ffmpeg" on PATH.
func NewFFmpeg(binary string) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary}
}

func (f *FFmpeg) Silence(ctx context.Context, path string, seconds float64) error {
	if seconds <= 0 {
		return errors.New("ffmpeg silence: duration must be positive")
	}
	return f.run(ctx,
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=stereo",
		"-t", fmt.Sprintf("%.3f", seconds),
		"-c:a", "libmp3lame", "-q:a", "9",
		path,
	)
}

func (f *FFmpeg) Concat(ctx context.Context, listPath, outPath string) error {
	return f.run(ctx,
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c:a", "libmp3lame", "-q:a", "2",
		outPath,
	)
}

func (f *FFmpeg) Normalize(ctx context.Context, inPath, outPath string) error {
	return f.run(ctx,
		"-i", inPath,
		"-af", "loudnorm=I=-16:TP=-1.5:LRA=11",
		"-c:a", "libmp3lame", "-q:a", "2",
		outPath,
	)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	cmd := exec.CommandContext(ctx, f.binary, full...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", args[0], err, strings.TrimSpace(string(output)))
	}
	return nil
}
