// Package export renders transcribed segments as text, Markdown, WebVTT or
// SubRip. Segments without transcription text are left out of every format.
package export

import (
	"fmt"
	"math"
	"strings"

	"transcriber/internal/segment"
)

// Format is an export target.
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatWebVTT   Format = "vtt"
	FormatSRT      Format = "srt"
)

// Formats lists the supported targets.
var Formats = []Format{FormatText, FormatMarkdown, FormatWebVTT, FormatSRT}

// ParseFormat accepts a format name or common alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "txt", "text", "plain":
		return FormatText, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "vtt", "webvtt":
		return FormatWebVTT, nil
	case "srt", "subrip":
		return FormatSRT, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want txt, md, vtt or srt)", name)
	}
}

// FileExtension returns the extension including the dot.
func (f Format) FileExtension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatWebVTT:
		return "text/vtt; charset=utf-8"
	case FormatSRT:
		return "application/x-subrip; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render dispatches to the formatter for f.
func Render(f Format, segs []segment.Segment) (string, error) {
	switch f {
	case FormatText:
		return Text(segs), nil
	case FormatMarkdown:
		return Markdown(segs), nil
	case FormatWebVTT:
		return WebVTT(segs), nil
	case FormatSRT:
		return SRT(segs), nil
	default:
		return "", fmt.Errorf("unknown export format %q", f)
	}
}

// Text joins transcriptions with single spaces.
func Text(segs []segment.Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if text := s.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Markdown writes one heading per segment numbered by its position in segs.
func Markdown(segs []segment.Segment) string {
	var b strings.Builder
	for i, s := range segs {
		text := s.Text()
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## Segment %d (%s-%s)\n\n%s\n\n", i+1,
			formatMarkdownTime(s.StartSeconds), formatMarkdownTime(s.EndSeconds), text)
	}
	return b.String()
}

// WebVTT writes cues numbered by position in segs.
func WebVTT(segs []segment.Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, s := range segs {
		text := s.Text()
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1,
			formatVTTTime(s.StartSeconds), formatVTTTime(s.EndSeconds), text)
	}
	return b.String()
}

// SRT writes cues renumbered 1..N over the exported segments.
func SRT(segs []segment.Segment) string {
	var b strings.Builder
	cue := 0
	for _, s := range segs {
		text := s.Text()
		if text == "" {
			continue
		}
		cue++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", cue,
			formatSRTTime(s.StartSeconds), formatSRTTime(s.EndSeconds), text)
	}
	return b.String()
}

// formatMarkdownTime renders m:ss.ff.
func formatMarkdownTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	return fmt.Sprintf("%d:%02d.%02d", cs/6000, cs%6000/100, cs%100)
}

// formatVTTTime renders hh:mm:ss.mmm.
func formatVTTTime(seconds float64) string {
	h, m, s, ms := split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}

// formatSRTTime renders hh:mm:ss,mmm.
func formatSRTTime(seconds float64) string {
	h, m, s, ms := split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// split breaks seconds into clock fields with truncated milliseconds. A
// small epsilon keeps values like 3725.4 from truncating to .399.
func split(seconds float64) (h, m, s, ms int) {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Floor(seconds*1000 + 1e-6))
	ms = int(total % 1000)
	secs := total / 1000
	return int(secs / 3600), int(secs % 3600 / 60), int(secs % 60), ms
}
