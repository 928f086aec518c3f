package services_test

import (
	"errors"
	"strings"
	"testing"

	"transcriber/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "detection", "decode", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"detection", "decode", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestSegmentLocal(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"extraction", services.Wrap(services.ErrExtraction, "extract", "slice", "bad range", nil), true},
		{"transcription", services.Wrap(services.ErrTranscription, "transcribe", "call", "http 500", nil), true},
		{"transfer", services.Wrap(services.ErrTransfer, "upload", "chunk", "missing", nil), false},
		{"detection", services.Wrap(services.ErrDetection, "vad", "decode", "", nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.SegmentLocal(tc.err); got != tc.want {
				t.Fatalf("SegmentLocal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if services.Retryable(services.Wrap(services.ErrSerialization, "project", "load", "", nil)) {
		t.Fatal("serialization errors must not be retryable")
	}
	if !services.Retryable(services.Wrap(services.ErrTranscription, "transcribe", "call", "", nil)) {
		t.Fatal("transcription errors should be retryable")
	}
}
