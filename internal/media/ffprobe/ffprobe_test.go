package ffprobe

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestInspectWithParsesAudioStreams(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" {
			t.Fatalf("unexpected binary %q", binary)
		}
		gotArgs = args
		return []byte(`{"streams":[{"index":0,"codec_name":"mp3","codec_type":"audio","sample_rate":"44100","channels":2}],"format":{"duration":"12.5","size":"2048","format_name":"mp3"}}`), nil
	}
	result, err := InspectWith(context.Background(), run, "", "talk.mp3")
	if err != nil {
		t.Fatalf("InspectWith failed: %v", err)
	}
	if gotArgs[len(gotArgs)-1] != "talk.mp3" {
		t.Fatalf("expected path as last arg, got %v", gotArgs)
	}
	stream, err := result.PrimaryAudio()
	if err != nil {
		t.Fatalf("PrimaryAudio failed: %v", err)
	}
	if stream.SampleRateHz() != 44100 || stream.Channels != 2 {
		t.Fatalf("unexpected stream: %#v", stream)
	}
	if result.DurationSeconds() != 12.5 || result.SizeBytes() != 2048 {
		t.Fatalf("unexpected format: %#v", result.Format)
	}
}

func TestInspectWithReportsFailure(t *testing.T) {
	run := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Invalid data found"), errors.New("exit status 1")
	}
	if _, err := InspectWith(context.Background(), run, "ffprobe", "x.wav"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := InspectWith(context.Background(), run, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestResultHelpersHandleMissingData(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}, {CodecType: "audio", Duration: "3.25", SampleRate: "bad"}},
		Format:  Format{Size: "-1"},
	}
	if result.DurationSeconds() != 3.25 {
		t.Fatalf("expected stream duration fallback, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	stream, _ := result.PrimaryAudio()
	if stream.SampleRateHz() != 0 {
		t.Fatalf("expected unknown sample rate, got %d", stream.SampleRateHz())
	}
	if !math.IsNaN(Result{Format: Format{Duration: "bad"}}.DurationSeconds()) {
		t.Fatal("expected NaN for malformed duration")
	}
	if _, err := (Result{}).PrimaryAudio(); !errors.Is(err, ErrNoAudioStream) {
		t.Fatalf("expected ErrNoAudioStream, got %v", err)
	}
}

func TestResultLanguagePrefersStreamTags(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Tags: map[string]string{"language": "ger"}}},
		Format:  Format{Tags: map[string]string{"language": "eng"}},
	}
	if got := result.Language(); got != "de" {
		t.Fatalf("Language = %q, want de", got)
	}
	result.Streams[0].Tags = map[string]string{"language": "und"}
	if got := result.Language(); got != "en" {
		t.Fatalf("Language fallback = %q, want en", got)
	}
	if got := (Result{}).Language(); got != "" {
		t.Fatalf("Language on empty result = %q", got)
	}
}
