package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"transcriber/internal/language"
)

// ErrNoAudioStream reports a container with no decodable audio.
var ErrNoAudioStream = errors.New("no audio stream")

// Result is the subset of ffprobe output the transcriber reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream is one elementary stream.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`

	Tags map[string]string `json:"tags,omitempty"`
}

// Format is container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`

	Tags map[string]string `json:"tags,omitempty"`
}

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
}

// Inspect probes path with the ffprobe binary.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	return InspectWith(ctx, execRunner, binary, path)
}

// InspectWith probes path through run.
func InspectWith(ctx context.Context, run Runner, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	output, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-select_streams", "a", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreams returns the audio streams in index order.
func (r Result) AudioStreams() []Stream {
	out := make([]Stream, 0, len(r.Streams))
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			out = append(out, s)
		}
	}
	return out
}

// PrimaryAudio returns the first audio stream.
func (r Result) PrimaryAudio() (Stream, error) {
	streams := r.AudioStreams()
	if len(streams) == 0 {
		return Stream{}, ErrNoAudioStream
	}
	return streams[0], nil
}

// SampleRateHz returns the stream sample rate, or 0 when unknown.
func (s Stream) SampleRateHz() int {
	v, err := strconv.Atoi(strings.TrimSpace(s.SampleRate))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// DurationSeconds returns the container duration, falling back to the first
// audio stream. NaN signals an unparseable value.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d != 0 {
		return d
	}
	if s, err := r.PrimaryAudio(); err == nil {
		return parseFloat(s.Duration)
	}
	return 0
}

// Language returns the ISO 639-1 language tagged on the primary audio stream,
// falling back to the container tags.
func (r Result) Language() string {
	if s, err := r.PrimaryAudio(); err == nil {
		if lang := language.FromTags(s.Tags); lang != "" {
			return lang
		}
	}
	return language.FromTags(r.Format.Tags)
}

// SizeBytes returns the container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
