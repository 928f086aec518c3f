package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs while preserving signal
// when the step changes or the percentage crosses a bucket boundary.
type ProgressSampler struct {
	bucketSize float64
	lastStep   string
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the percent crosses
// bucket boundaries (default 5%) or when the step changes.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event should be logged. A negative
// percent means "unknown" and only step changes are considered.
func (s *ProgressSampler) ShouldLog(percent float64, step string) bool {
	if s == nil {
		return true
	}
	emit := false
	if step = strings.TrimSpace(step); step != "" && step != s.lastStep {
		s.lastStep = step
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		if bucket := int(percent / s.bucketSize); bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears the sampler state (e.g. when a new run starts).
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStep = ""
	s.lastBucket = -1
}
