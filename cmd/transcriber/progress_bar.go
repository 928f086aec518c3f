package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"transcriber/internal/progress"
)

// progressReporter renders progress events as a terminal bar. Writers that
// are not terminals get no bar.
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer, description string) *progressReporter {
	if !isTerminal(w) {
		return &progressReporter{}
	}
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &progressReporter{bar: bar}
}

// Func adapts the bar to the pipeline's progress callback.
func (r *progressReporter) Func() progress.Func {
	if r == nil || r.bar == nil {
		return progress.Nop
	}
	return func(e progress.Event) {
		label := e.Step
		if e.Details != "" {
			label += " " + e.Details
		}
		if label != "" {
			r.bar.Describe(label)
		}
		_ = r.bar.Set(int(progress.Clamp(e.Percent)))
	}
}

func (r *progressReporter) Finish() {
	if r == nil || r.bar == nil {
		return
	}
	_ = r.bar.Finish()
}
