package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"transcriber/internal/api"
	"transcriber/internal/config"
	"transcriber/internal/project"
	"transcriber/internal/segment"
)

// projectTarget names either a daemon project (by id) or a saved project file.
type projectTarget struct {
	ID   int64
	Path string
}

func (t projectTarget) remote() bool { return t.ID > 0 }

func parseTarget(arg string) (projectTarget, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return projectTarget{}, errors.New("project id or file is required")
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		if id < 1 {
			return projectTarget{}, fmt.Errorf("invalid project id: %d", id)
		}
		return projectTarget{ID: id}, nil
	}
	path, err := config.ExpandPath(arg)
	if err != nil {
		return projectTarget{}, err
	}
	return projectTarget{Path: path}, nil
}

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid project id: %q", arg)
	}
	return id, nil
}

func parseSegmentIndex(arg string) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid segment index: %q", arg)
	}
	return index, nil
}

// defaultProjectPath places a project file next to input, swapping the extension.
func defaultProjectPath(input string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + project.FileExtension
}

func projectName(flagValue, path string) string {
	if name := strings.TrimSpace(flagValue); name != "" {
		return name
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, project.FileExtension)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatSeconds(seconds float64) string {
	total := int(seconds * 1000)
	h := total / 3_600_000
	m := total / 60_000 % 60
	s := total / 1000 % 60
	ms := total % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}

func segmentRows(segs []api.Segment) [][]string {
	rows := make([][]string, 0, len(segs))
	for _, seg := range segs {
		text := seg.Error
		if seg.Transcription != nil {
			text = *seg.Transcription
		}
		rows = append(rows, []string{
			strconv.Itoa(seg.Index),
			formatSeconds(seg.Start),
			formatSeconds(seg.End),
			seg.State,
			strings.TrimSpace(text),
		})
	}
	return rows
}

func printSegments(out io.Writer, segs []api.Segment) {
	if len(segs) == 0 {
		fmt.Fprintln(out, "No segments")
		return
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Start", "End", "State", "Text"},
		segmentRows(segs),
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
}

// printLocalProject summarizes a saved project file.
func printLocalProject(out io.Writer, path string, p *segment.Project) {
	counts := api.CountSegments(p.Segments)
	fmt.Fprintf(out, "Project: %s\n", p.Name)
	fmt.Fprintf(out, "File: %s\n", path)
	if p.SourceFilename != "" {
		fmt.Fprintf(out, "Source: %s (%s)\n", p.SourceFilename, sourceSize(p))
	}
	fmt.Fprintf(out, "Segments: %d total, %d done, %d failed, %d pending\n",
		counts.Total, counts.Done, counts.Failed, counts.Pending)
	printSegments(out, localSegments(p))
}

func sourceSize(p *segment.Project) string {
	if len(p.SourceAudio) == 0 {
		return "audio not embedded"
	}
	return humanize.Bytes(uint64(len(p.SourceAudio)))
}
