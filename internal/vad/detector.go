package vad

import (
	"math"
	"sort"
)

// Detection defaults.
const (
	DefaultFrameSize     = 512
	DefaultThreshold     = 0.5
	DefaultPaddingFrames = 2
	DefaultMinRMS        = 100.0
	DefaultMaxMergeGap   = 1.5
)

// Detector labels consecutive frames of 16 kHz mono samples. The returned
// slice has one entry per frame, the last frame possibly short.
type Detector interface {
	FrameSize() int
	Label(samples []int16) []bool
}

// EnergyDetector marks frames whose normalized log energy reaches Threshold.
type EnergyDetector struct {
	Frame     int
	Threshold float64
	// Padding extends every speech run by this many frames on each side.
	Padding int
	// MinRMS is the loudness below which a file is treated as silent.
	MinRMS float64
}

// NewEnergyDetector returns a detector with the default tuning.
func NewEnergyDetector() *EnergyDetector {
	return &EnergyDetector{
		Frame:     DefaultFrameSize,
		Threshold: DefaultThreshold,
		Padding:   DefaultPaddingFrames,
		MinRMS:    DefaultMinRMS,
	}
}

func (d *EnergyDetector) FrameSize() int {
	if d.Frame <= 0 {
		return DefaultFrameSize
	}
	return d.Frame
}

func (d *EnergyDetector) Label(samples []int16) []bool {
	scores := d.Scores(samples)
	labels := make([]bool, len(scores))
	for i, s := range scores {
		labels[i] = s >= d.Threshold
	}
	return Pad(labels, d.Padding)
}

// Scores returns a speech likelihood in [0,1] per frame.
func (d *EnergyDetector) Scores(samples []int16) []float64 {
	frame := d.FrameSize()
	n := (len(samples) + frame - 1) / frame
	rms := make([]float64, n)
	for i := 0; i < n; i++ {
		end := (i + 1) * frame
		if end > len(samples) {
			end = len(samples)
		}
		rms[i] = frameRMS(samples[i*frame : end])
	}
	scores := make([]float64, n)
	if n == 0 {
		return scores
	}

	peak := 0.0
	for _, v := range rms {
		peak = math.Max(peak, v)
	}
	if peak < d.MinRMS {
		return scores
	}
	floor := math.Max(percentile(rms, 0.1), 1)
	lo, hi := math.Log10(floor), math.Log10(peak)
	if hi <= lo {
		for i := range scores {
			scores[i] = 1
		}
		return scores
	}
	for i, v := range rms {
		if v < d.MinRMS {
			continue
		}
		s := (math.Log10(math.Max(v, 1)) - lo) / (hi - lo)
		scores[i] = math.Max(0, math.Min(1, s))
	}
	return scores
}

// Pad widens every true run by n entries on both sides.
func Pad(labels []bool, n int) []bool {
	if n <= 0 {
		return labels
	}
	out := make([]bool, len(labels))
	for i, speech := range labels {
		if !speech {
			continue
		}
		from := max(i-n, 0)
		to := min(i+n, len(labels)-1)
		for j := from; j <= to; j++ {
			out[j] = true
		}
	}
	return out
}

func frameRMS(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
