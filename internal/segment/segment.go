package segment

import (
	"errors"
	"fmt"
	"math"
)

// ReferenceSampleRate is the sample rate used for sample offsets when the
// source audio does not dictate one.
const ReferenceSampleRate = 16000

// State is the transcription lifecycle of a segment.
type State string

const (
	StatePending      State = "pending"
	StateTranscribing State = "transcribing"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// ErrInvalidTransition reports a lifecycle move that the state machine forbids.
var ErrInvalidTransition = errors.New("invalid segment transition")

// Segment is one detected or imported speech interval.
type Segment struct {
	StartSample  int64
	EndSample    int64
	StartSeconds float64
	EndSeconds   float64

	// AudioSlice holds encoded audio for this segment alone. Empty for
	// imported segments until extraction.
	AudioSlice []byte

	// Transcription is nil until an attempt has succeeded.
	Transcription      *string
	TranscriptionError *string
	Transcribing       bool
}

// New builds a segment from second offsets, deriving sample offsets at rate.
func New(start, end float64, rate int) Segment {
	return Segment{
		StartSample:  SampleAt(start, rate),
		EndSample:    SampleAt(end, rate),
		StartSeconds: start,
		EndSeconds:   end,
	}
}

// SampleAt converts seconds to a sample offset at rate.
func SampleAt(seconds float64, rate int) int64 {
	if rate <= 0 {
		rate = ReferenceSampleRate
	}
	return int64(math.Round(seconds * float64(rate)))
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.EndSeconds - s.StartSeconds
}

// HasAudio reports whether the segment carries its own audio slice.
func (s Segment) HasAudio() bool {
	return len(s.AudioSlice) > 0
}

// Text returns the transcription or an empty string.
func (s Segment) Text() string {
	if s.Transcription == nil {
		return ""
	}
	return *s.Transcription
}

// Error returns the last transcription error or an empty string.
func (s Segment) Error() string {
	if s.TranscriptionError == nil {
		return ""
	}
	return *s.TranscriptionError
}

// State derives the lifecycle state from the segment fields.
func (s Segment) State() State {
	switch {
	case s.Transcribing:
		return StateTranscribing
	case s.TranscriptionError != nil:
		return StateFailed
	case s.Transcription != nil:
		return StateDone
	default:
		return StatePending
	}
}

// Begin moves the segment into Transcribing and clears any prior error.
// Pending, Failed and Done segments may begin; Done re-enters for re-transcription.
func (s *Segment) Begin() error {
	if s.Transcribing {
		return fmt.Errorf("%w: segment already transcribing", ErrInvalidTransition)
	}
	s.Transcribing = true
	s.TranscriptionError = nil
	return nil
}

// Complete records a successful transcription.
func (s *Segment) Complete(text string) error {
	if !s.Transcribing {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s.State())
	}
	s.Transcription = &text
	s.TranscriptionError = nil
	s.Transcribing = false
	return nil
}

// Fail records a failed attempt. Any previous transcription is kept.
func (s *Segment) Fail(message string) error {
	if !s.Transcribing {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, s.State())
	}
	if message == "" {
		message = "transcription failed"
	}
	s.TranscriptionError = &message
	s.Transcribing = false
	return nil
}

// Abandon leaves Transcribing without recording an outcome.
func (s *Segment) Abandon() {
	s.Transcribing = false
}

// ResetTransient clears fields that only make sense while a process is running.
func (s *Segment) ResetTransient() {
	s.Transcribing = false
	s.TranscriptionError = nil
}

// Clone returns a deep copy so snapshots can leave the owning goroutine.
func (s Segment) Clone() Segment {
	out := s
	if s.AudioSlice != nil {
		out.AudioSlice = append([]byte(nil), s.AudioSlice...)
	}
	if s.Transcription != nil {
		text := *s.Transcription
		out.Transcription = &text
	}
	if s.TranscriptionError != nil {
		msg := *s.TranscriptionError
		out.TranscriptionError = &msg
	}
	return out
}
