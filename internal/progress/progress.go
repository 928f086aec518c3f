// Package progress carries step/percent events from long-running work to
// whoever is watching it.
package progress

import (
	"log/slog"
	"sync"

	"transcriber/internal/logging"
)

// Event is one progress report. Percent is in [0,100].
type Event struct {
	Step    string  `json:"step"`
	Percent float64 `json:"percent"`
	Details string  `json:"details,omitempty"`
}

// Func receives progress events. Implementations must be cheap.
type Func func(Event)

// Nop discards events.
func Nop(Event) {}

// Emit calls fn when set.
func (fn Func) Emit(step string, percent float64, details string) {
	if fn == nil {
		return
	}
	fn(Event{Step: step, Percent: Clamp(percent), Details: details})
}

// Clamp bounds percent to [0,100].
func Clamp(percent float64) float64 {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// Scale maps a fraction in [0,1] onto the [from,to] percent window.
func Scale(fraction, from, to float64) float64 {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return from + (to-from)*fraction
}

// Logger returns a Func that logs sampled events at info level.
func Logger(logger *slog.Logger) Func {
	if logger == nil {
		return Nop
	}
	var mu sync.Mutex
	sampler := logging.NewProgressSampler(10)
	return func(ev Event) {
		mu.Lock()
		emit := sampler.ShouldLog(ev.Percent, ev.Step)
		mu.Unlock()
		if !emit {
			return
		}
		attrs := []logging.Attr{
			logging.String(logging.FieldProgressStep, ev.Step),
			logging.Float64(logging.FieldProgressPercent, ev.Percent),
		}
		if ev.Details != "" {
			attrs = append(attrs, logging.String("details", ev.Details))
		}
		logger.Info("progress", logging.Args(attrs...)...)
	}
}

// Multi fans an event out to every non-nil fn.
func Multi(fns ...Func) Func {
	return func(ev Event) {
		for _, fn := range fns {
			if fn != nil {
				fn(ev)
			}
		}
	}
}
