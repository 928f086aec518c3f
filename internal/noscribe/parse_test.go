package noscribe_test

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"transcriber/internal/noscribe"
	"transcriber/internal/segment"
	"transcriber/internal/services"
)

const sampleDoc = `<!DOCTYPE html>
<html><head>
<meta name="audio_source" content="interview.mp3">
<title>Interview</title>
</head><body>
<p>Transcribed with noScribe</p>
<p><span>S01:</span> <a name="ts_5000">[00:00:05]</a> Hello there, welcome.</p>
<p><span>S02:</span> [00:00:09] Thanks for having me.</p>
<p>[00:01:02] no speaker on this one</p>
<p>S01: [00:01:10] One two three four five six seven eight nine</p>
</body></html>`

func TestParseTimestampedDocument(t *testing.T) {
	result, err := noscribe.Parse(strings.NewReader(sampleDoc), noscribe.Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Mode != noscribe.ModeTimestamps || result.Dropped != 1 {
		t.Fatalf("unexpected mode/dropped: %s %d", result.Mode, result.Dropped)
	}
	if result.SourcePath != "interview.mp3" {
		t.Fatalf("unexpected source %q", result.SourcePath)
	}
	segs := result.Segments
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}

	wantStarts := []float64{5, 9, 62, 70}
	wantEnds := []float64{9, 62, 70, 73}
	for i := range segs {
		if segs[i].StartSeconds != wantStarts[i] || segs[i].EndSeconds != wantEnds[i] {
			t.Fatalf("segment %d = %.2f-%.2f, want %.2f-%.2f", i, segs[i].StartSeconds, segs[i].EndSeconds, wantStarts[i], wantEnds[i])
		}
		if segs[i].HasAudio() {
			t.Fatalf("segment %d should have no audio", i)
		}
	}
	if segs[0].StartSample != 80000 || segs[0].EndSample != 144000 {
		t.Fatalf("unexpected sample offsets %d-%d", segs[0].StartSample, segs[0].EndSample)
	}
	if segs[0].Text() != "S01: Hello there, welcome." {
		t.Fatalf("unexpected text %q", segs[0].Text())
	}
	if segs[2].Text() != "no speaker on this one" {
		t.Fatalf("unexpected speakerless text %q", segs[2].Text())
	}
}

func TestParseLastEntryMinimumDuration(t *testing.T) {
	doc := `<p>A: [00:00:01] hi</p><p>B: [00:00:04] ok</p>`
	result, err := noscribe.Parse(strings.NewReader(doc), noscribe.Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	last := result.Segments[1]
	if last.EndSeconds != 6 {
		t.Fatalf("expected 2s minimum for short last entry, got end %.2f", last.EndSeconds)
	}
}

func TestParseFallbackPlacement(t *testing.T) {
	long := strings.Repeat("a", 450)
	doc := "<p>short paragraph</p><p>" + long + "</p><p>   </p>"
	result, err := noscribe.Parse(strings.NewReader(doc), noscribe.Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Mode != noscribe.ModeEstimated || len(result.Segments) != 2 {
		t.Fatalf("unexpected result %s with %d segments", result.Mode, len(result.Segments))
	}
	first, second := result.Segments[0], result.Segments[1]
	if first.StartSeconds != 0 || first.EndSeconds != 3 {
		t.Fatalf("unexpected first span %.2f-%.2f", first.StartSeconds, first.EndSeconds)
	}
	if second.StartSeconds != 3 || math.Abs(second.EndSeconds-7.5) > 1e-9 {
		t.Fatalf("unexpected second span %.2f-%.2f", second.StartSeconds, second.EndSeconds)
	}
}

func TestParseCustomHeuristics(t *testing.T) {
	doc := `<p>A: [00:00:00] one two three four five six</p>`
	result, err := noscribe.Parse(strings.NewReader(doc), noscribe.Options{WordsPerSecond: 1, MinLastSeconds: 1})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Segments[0].EndSeconds != 6 {
		t.Fatalf("expected 6s at one word per second, got %.2f", result.Segments[0].EndSeconds)
	}
}

func TestParsePlainTextBody(t *testing.T) {
	result, err := noscribe.Parse(strings.NewReader("S1: [00:00:02] first line\nS2: [00:00:04] second"), noscribe.Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(result.Segments) != 2 || result.Segments[1].Text() != "S2: second" {
		t.Fatalf("unexpected segments %+v", result.Segments)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := noscribe.Parse(strings.NewReader("<html><body></body></html>"), noscribe.Options{})
	if !errors.Is(err, noscribe.ErrNoContent) || !errors.Is(err, services.ErrImportParse) {
		t.Fatalf("expected no content import error, got %v", err)
	}
}

func TestParseEntry(t *testing.T) {
	cases := []struct {
		in      string
		ok      bool
		speaker string
		start   float64
		body    string
	}{
		{"SPEAKER 1: [01:02:03] text here", true, "SPEAKER 1", 3723, "text here"},
		{"[00:00:07.5] decimals", true, "", 7.5, "decimals"},
		{"no anchor at all", false, "", 0, ""},
		{"S: [00:61:00] bad minutes", false, "", 0, ""},
	}
	for _, tc := range cases {
		entry, ok := noscribe.ParseEntry(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseEntry(%q) ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if entry.Speaker != tc.speaker || entry.Start != tc.start || entry.Body != tc.body {
			t.Fatalf("ParseEntry(%q) = %+v", tc.in, entry)
		}
	}
}

func TestLocate(t *testing.T) {
	base := "/data/transcripts"
	present := map[string]bool{filepath.Join(base, "interview.mp3"): true}
	exists := func(p string) bool { return present[p] }

	loc := noscribe.Locate(noscribe.Result{SourcePath: "interview.mp3"}, base, exists)
	if loc.Missing || loc.Path != filepath.Join(base, "interview.mp3") {
		t.Fatalf("unexpected location %+v", loc)
	}

	loc = noscribe.Locate(noscribe.Result{SourcePath: "/elsewhere/interview.mp3"}, base, exists)
	if loc.Missing {
		t.Fatalf("expected basename fallback to find file, got %+v", loc)
	}

	loc = noscribe.Locate(noscribe.Result{SourcePath: "gone.wav"}, base, exists)
	if !loc.Missing || loc.Path != "gone.wav" {
		t.Fatalf("expected missing location, got %+v", loc)
	}

	if loc := noscribe.Locate(noscribe.Result{}, base, exists); !loc.Missing {
		t.Fatal("expected missing when no source referenced")
	}
}

func TestParseMergesRepeatedTimestamps(t *testing.T) {
	doc := `<html><body>
<p>S01: [00:00:10] first</p>
<p>S02: [00:00:10] same moment</p>
<p>S01: [00:00:20] later</p>
<p>S02: [00:00:15] went backwards</p>
</body></html>`
	result, err := noscribe.Parse(strings.NewReader(doc), noscribe.Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if result.Merged != 2 {
		t.Fatalf("expected 2 merged entries, got %d", result.Merged)
	}
	segs := result.Segments
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if err := segment.Validate(segs); err != nil {
		t.Fatalf("merged segments invalid: %v", err)
	}
	if segs[0].StartSeconds != 10 || segs[0].EndSeconds != 20 {
		t.Fatalf("unexpected first interval %.2f-%.2f", segs[0].StartSeconds, segs[0].EndSeconds)
	}
	if segs[0].Text() != "S01: first\nS02: same moment" {
		t.Fatalf("unexpected merged text %q", segs[0].Text())
	}
	if segs[1].Text() != "S01: later\nS02: went backwards" || !(segs[1].EndSeconds > segs[1].StartSeconds) {
		t.Fatalf("unexpected last segment %+v", segs[1])
	}
	if !strings.Contains(result.Summary(), "2 merged") {
		t.Fatalf("summary should report merges: %q", result.Summary())
	}
}
