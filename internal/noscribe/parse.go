package noscribe

import (
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"transcriber/internal/segment"
	"transcriber/internal/services"
)

// ErrNoContent reports a document with neither timestamped entries nor text.
var ErrNoContent = errors.New("transcript has no content")

var anchorPattern = regexp.MustCompile(`\[(\d{1,2}):(\d{1,2}):(\d{1,2}(?:\.\d+)?)\]`)

// Mode records how segment times were derived.
type Mode string

const (
	ModeTimestamps Mode = "timestamps"
	ModeEstimated  Mode = "estimated"
)

// Entry is one parsed utterance.
type Entry struct {
	Speaker string
	Body    string
	Start   float64
}

// Text renders the entry as stored on the segment.
func (e Entry) Text() string {
	if e.Speaker == "" {
		return e.Body
	}
	return e.Speaker + ": " + e.Body
}

// Result is a parsed transcript.
type Result struct {
	Segments []segment.Segment
	// SourcePath is the recording named by the document, if any.
	SourcePath string
	Mode       Mode
	// Dropped counts paragraphs without a usable timestamp.
	Dropped int
	// Merged counts entries folded into the previous one because their
	// timestamp did not move forward.
	Merged int
}

// Parse reads a noScribe HTML document.
func Parse(r io.Reader, opts Options) (Result, error) {
	opts = opts.withDefaults()
	doc, err := html.Parse(r)
	if err != nil {
		return Result{}, services.Wrap(services.ErrImportParse, "import", "parse html", "", err)
	}
	paragraphs, source := collect(doc)

	var entries []Entry
	dropped := 0
	for _, p := range paragraphs {
		entry, ok := ParseEntry(p)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}

	result := Result{SourcePath: source}
	switch {
	case len(entries) > 0:
		result.Mode = ModeTimestamps
		result.Dropped = dropped
		result.Segments, result.Merged = fromEntries(entries, opts)
	case len(paragraphs) > 0:
		result.Mode = ModeEstimated
		result.Segments = fromParagraphs(paragraphs, opts)
	default:
		return Result{}, services.Wrap(services.ErrImportParse, "import", "collect paragraphs", "", ErrNoContent)
	}
	return result, nil
}

// ParseEntry extracts speaker, start time and body from one paragraph.
func ParseEntry(paragraph string) (Entry, bool) {
	loc := anchorPattern.FindStringSubmatchIndex(paragraph)
	if loc == nil {
		return Entry{}, false
	}
	h, errH := strconv.Atoi(paragraph[loc[2]:loc[3]])
	m, errM := strconv.Atoi(paragraph[loc[4]:loc[5]])
	s, errS := strconv.ParseFloat(paragraph[loc[6]:loc[7]], 64)
	if errH != nil || errM != nil || errS != nil || m >= 60 || s >= 60 {
		return Entry{}, false
	}

	speaker := ""
	prefix := paragraph[:loc[0]]
	if idx := strings.Index(prefix, ":"); idx >= 0 {
		speaker = strings.TrimSpace(prefix[:idx])
	}
	return Entry{
		Speaker: speaker,
		Body:    strings.TrimSpace(paragraph[loc[1]:]),
		Start:   float64(h*3600+m*60) + s,
	}, true
}

// fromEntries turns entries into segments ending where the next one starts.
// An entry whose start does not move past the previous start is appended to
// that segment's text so every interval stays non-empty.
func fromEntries(entries []Entry, opts Options) ([]segment.Segment, int) {
	type group struct {
		start float64
		texts []string
		words int
	}
	var groups []group
	merged := 0
	for _, entry := range entries {
		words := len(strings.Fields(entry.Body))
		if n := len(groups); n > 0 && entry.Start <= groups[n-1].start {
			last := &groups[n-1]
			if text := entry.Text(); text != "" {
				last.texts = append(last.texts, text)
			}
			last.words += words
			merged++
			continue
		}
		g := group{start: entry.Start, words: words}
		if text := entry.Text(); text != "" {
			g.texts = append(g.texts, text)
		}
		groups = append(groups, g)
	}

	segs := make([]segment.Segment, len(groups))
	for i, g := range groups {
		var end float64
		if i+1 < len(groups) {
			end = groups[i+1].start
		} else {
			end = g.start + math.Max(float64(g.words)/opts.WordsPerSecond, opts.MinLastSeconds)
		}
		text := strings.Join(g.texts, "\n")
		segs[i] = withText(segment.New(g.start, end, opts.SampleRate), text)
	}
	return segs, merged
}

func fromParagraphs(paragraphs []string, opts Options) []segment.Segment {
	segs := make([]segment.Segment, 0, len(paragraphs))
	cursor := 0.0
	for _, p := range paragraphs {
		chars := float64(utf8.RuneCountInString(p))
		duration := math.Max(chars/opts.CharsPerSecond, opts.MinFallbackSeconds)
		segs = append(segs, withText(segment.New(cursor, cursor+duration, opts.SampleRate), p))
		cursor += duration
	}
	return segs
}

func withText(seg segment.Segment, text string) segment.Segment {
	if text != "" {
		seg.Transcription = &text
	}
	return seg
}

// collect returns the normalized, non-empty paragraph texts in document
// order and the audio_source meta value. Documents without <p> elements
// fall back to the lines of the body text.
func collect(doc *html.Node) ([]string, string) {
	var (
		paragraphs []string
		source     string
		body       *html.Node
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Meta:
				if attr(n, "name") == "audio_source" {
					source = strings.TrimSpace(attr(n, "content"))
				}
			case atom.Body:
				body = n
			case atom.P:
				if text := clean(textOf(n)); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return
			case atom.Script, atom.Style:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(paragraphs) == 0 && body != nil {
		for _, line := range strings.Split(textOf(body), "\n") {
			if text := clean(line); text != "" {
				paragraphs = append(paragraphs, text)
			}
		}
	}
	return paragraphs, source
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			b.WriteString("\n")
		case n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style):
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func clean(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// Summary describes a result for logs and CLI output.
func (r Result) Summary() string {
	summary := fmt.Sprintf("%d segments (%s, %d dropped", len(r.Segments), r.Mode, r.Dropped)
	if r.Merged > 0 {
		summary += fmt.Sprintf(", %d merged", r.Merged)
	}
	return summary + ")"
}
