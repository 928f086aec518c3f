// Package ffmpeg normalizes compressed audio to 16 kHz mono PCM WAV.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"transcriber/internal/audio"
	"transcriber/internal/services"
)

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
}

// Converter shells out to ffmpeg. It satisfies audio.Converter.
type Converter struct {
	Binary  string
	WorkDir string
	Rate    int
	run     Runner
}

// NewConverter returns a Converter writing scratch files under workDir.
func NewConverter(binary, workDir string) *Converter {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Converter{Binary: binary, WorkDir: workDir, Rate: audio.TargetSampleRate, run: execRunner}
}

// WithRunner replaces the command runner, for tests.
func (c *Converter) WithRunner(run Runner) *Converter {
	c.run = run
	return c
}

// Args builds the ffmpeg argument list for a mono PCM WAV conversion.
func Args(source, dest string, rate int) []string {
	if rate <= 0 {
		rate = audio.TargetSampleRate
	}
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ConvertFile writes a mono PCM WAV rendition of source to dest.
func (c *Converter) ConvertFile(ctx context.Context, source, dest string) error {
	run := c.run
	if run == nil {
		run = execRunner
	}
	if output, err := run(ctx, c.Binary, Args(source, dest, c.Rate)...); err != nil {
		return services.Wrap(services.ErrExternalTool, "conversion", "ffmpeg convert", strings.TrimSpace(string(output)), err)
	}
	return nil
}

// ToWAV converts an in-memory payload through scratch files.
func (c *Converter) ToWAV(ctx context.Context, payload []byte, format audio.Format) ([]byte, error) {
	dir := c.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ffmpeg workdir: %w", err)
	}
	ext := string(format)
	if ext == "" {
		ext = "bin"
	}
	name := uuid.NewString()
	source := filepath.Join(dir, name+"."+ext)
	dest := filepath.Join(dir, name+".wav")
	defer os.Remove(source)
	defer os.Remove(dest)

	if err := os.WriteFile(source, payload, 0o600); err != nil {
		return nil, fmt.Errorf("ffmpeg stage input: %w", err)
	}
	if err := c.ConvertFile(ctx, source, dest); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg read output: %w", err)
	}
	return data, nil
}
