package audio

import "time"

// TargetSampleRate is the rate the detection pipeline and segment slices use.
const TargetSampleRate = 16000

// PCM is a mono 16-bit sample buffer.
type PCM struct {
	Rate    int
	Samples []int16
}

// Seconds returns the buffer length in seconds.
func (p PCM) Seconds() float64 {
	if p.Rate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.Rate)
}

// Duration returns the buffer length as a time.Duration.
func (p PCM) Duration() time.Duration {
	return time.Duration(p.Seconds() * float64(time.Second))
}

// Slice returns the samples in [from,to), clamped to the buffer.
func (p PCM) Slice(from, to int) PCM {
	if from < 0 {
		from = 0
	}
	if to > len(p.Samples) {
		to = len(p.Samples)
	}
	if from >= to {
		return PCM{Rate: p.Rate}
	}
	out := make([]int16, to-from)
	copy(out, p.Samples[from:to])
	return PCM{Rate: p.Rate, Samples: out}
}

// Index converts seconds to a sample index, truncating toward zero.
func (p PCM) Index(seconds float64) int {
	return int(seconds * float64(p.Rate))
}
