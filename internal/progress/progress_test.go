package progress_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"transcriber/internal/progress"
)

func TestClamp(t *testing.T) {
	cases := map[float64]float64{-5: 0, 0: 0, 42.5: 42.5, 100: 100, 130: 100}
	for in, want := range cases {
		if got := progress.Clamp(in); got != want {
			t.Fatalf("Clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestScale(t *testing.T) {
	if got := progress.Scale(0.5, 90, 95); got != 92.5 {
		t.Fatalf("Scale = %v, want 92.5", got)
	}
	if got := progress.Scale(2, 90, 95); got != 95 {
		t.Fatalf("Scale overflow = %v, want 95", got)
	}
}

func TestEmitClampsAndSkipsNil(t *testing.T) {
	var nilFn progress.Func
	nilFn.Emit("ignored", 50, "")

	var got []progress.Event
	fn := progress.Func(func(ev progress.Event) { got = append(got, ev) })
	fn.Emit("Decoding audio file", 150, "x")
	if len(got) != 1 || got[0].Percent != 100 || got[0].Details != "x" {
		t.Fatalf("unexpected events: %#v", got)
	}
}

func TestLoggerSamplesEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	fn := progress.Logger(logger)
	fn(progress.Event{Step: "Running voice activity detection", Percent: 50})
	fn(progress.Event{Step: "Running voice activity detection", Percent: 51})
	fn(progress.Event{Step: "Running voice activity detection", Percent: 62})

	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	if lines != 2 {
		t.Fatalf("expected 2 sampled lines, got %d: %s", lines, buf.String())
	}
}

func TestMulti(t *testing.T) {
	count := 0
	fn := progress.Multi(nil, func(progress.Event) { count++ }, func(progress.Event) { count++ })
	fn(progress.Event{Step: "x"})
	if count != 2 {
		t.Fatalf("expected 2 deliveries, got %d", count)
	}
}
