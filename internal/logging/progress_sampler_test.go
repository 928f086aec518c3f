package logging

import "testing"

func TestNewProgressSampler(t *testing.T) {
	tests := []struct {
		name       string
		bucketSize float64
		wantSize   float64
	}{
		{"default bucket size for zero", 0, 5},
		{"default bucket size for negative", -1, 5},
		{"custom bucket size", 10, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucketSize)
			if s.bucketSize != tt.wantSize {
				t.Errorf("bucketSize = %v, want %v", s.bucketSize, tt.wantSize)
			}
			if s.lastBucket != -1 {
				t.Errorf("lastBucket = %d, want -1", s.lastBucket)
			}
		})
	}
}

func TestProgressSamplerNil(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50, "step") {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	steps := []struct {
		percent float64
		step    string
		want    bool
	}{
		{0, "Decoding audio file", true},
		{5, "Decoding audio file", false},
		{10, "Decoding audio file", true},
		{12, "Decoding audio file", false},
		{12, "Audio decoded", true},
		{-1, "Audio decoded", false},
		{150, "Audio decoded", true},
		{100, "Audio decoded", false},
	}
	for i, st := range steps {
		if got := s.ShouldLog(st.percent, st.step); got != st.want {
			t.Fatalf("step %d: ShouldLog(%v, %q) = %v, want %v", i, st.percent, st.step, got, st.want)
		}
	}

	s.Reset()
	if !s.ShouldLog(0, "Audio decoded") {
		t.Fatal("expected emit after reset")
	}
}
