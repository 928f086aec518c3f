package noscribe

import "transcriber/internal/segment"

// Estimation defaults.
const (
	DefaultWordsPerSecond     = 3.0
	DefaultMinLastSeconds     = 2.0
	DefaultCharsPerSecond     = 100.0
	DefaultMinFallbackSeconds = 3.0
)

// Options hold the duration heuristics. Zero fields take the defaults.
type Options struct {
	// WordsPerSecond and MinLastSeconds size the final timestamped entry.
	WordsPerSecond float64
	MinLastSeconds float64
	// CharsPerSecond and MinFallbackSeconds size paragraphs when the
	// document carries no timestamps at all.
	CharsPerSecond     float64
	MinFallbackSeconds float64
	SampleRate         int
}

// DefaultOptions returns the reference heuristics.
func DefaultOptions() Options {
	return Options{
		WordsPerSecond:     DefaultWordsPerSecond,
		MinLastSeconds:     DefaultMinLastSeconds,
		CharsPerSecond:     DefaultCharsPerSecond,
		MinFallbackSeconds: DefaultMinFallbackSeconds,
		SampleRate:         segment.ReferenceSampleRate,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WordsPerSecond <= 0 {
		o.WordsPerSecond = d.WordsPerSecond
	}
	if o.MinLastSeconds <= 0 {
		o.MinLastSeconds = d.MinLastSeconds
	}
	if o.CharsPerSecond <= 0 {
		o.CharsPerSecond = d.CharsPerSecond
	}
	if o.MinFallbackSeconds <= 0 {
		o.MinFallbackSeconds = d.MinFallbackSeconds
	}
	if o.SampleRate <= 0 {
		o.SampleRate = d.SampleRate
	}
	return o
}
