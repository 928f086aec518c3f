package segment

import (
	"errors"
	"fmt"
)

// ErrMissingSourceAudio reports a project whose segments cannot all be
// resolved to audio.
var ErrMissingSourceAudio = errors.New("source audio required for segments without their own audio")

// Project is the root aggregate for one editing session.
type Project struct {
	Name           string
	SourceFilename string
	// SourceAudio is the whole-file encoded payload, read-only once stored.
	SourceAudio []byte
	// SourcePath is where the source audio was located on disk, if known.
	SourcePath string
	Segments   []Segment
}

// NeedsSourceAudio reports whether any segment relies on extraction.
func (p *Project) NeedsSourceAudio() bool {
	for _, seg := range p.Segments {
		if !seg.HasAudio() {
			return true
		}
	}
	return false
}

// Validate checks segment ordering and the source audio requirement.
func (p *Project) Validate() error {
	if err := Validate(p.Segments); err != nil {
		return err
	}
	if p.NeedsSourceAudio() && len(p.SourceAudio) == 0 {
		return ErrMissingSourceAudio
	}
	return nil
}

// Segment returns a pointer to the segment at index for in-place updates.
func (p *Project) Segment(index int) (*Segment, error) {
	if index < 0 || index >= len(p.Segments) {
		return nil, fmt.Errorf("segment index %d out of range [0,%d)", index, len(p.Segments))
	}
	return &p.Segments[index], nil
}

// Snapshot returns a deep copy of the segment collection.
func (p *Project) Snapshot() []Segment {
	out := make([]Segment, len(p.Segments))
	for i, seg := range p.Segments {
		out[i] = seg.Clone()
	}
	return out
}
