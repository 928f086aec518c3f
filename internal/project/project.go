// Package project saves and loads projects as JSON documents.
//
// The document keeps the whole-file audio and the persistent segment fields.
// Per-segment audio is written only when present. Loading tolerates missing
// fields and always clears transient transcription state.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"transcriber/internal/fileutil"
	"transcriber/internal/segment"
	"transcriber/internal/services"
)

// FileExtension is the suffix used for saved projects.
const FileExtension = ".transcript.json"

type document struct {
	Name           string            `json:"name"`
	SourceFilename string            `json:"source_filename"`
	SourceAudio    []byte            `json:"source_audio,omitempty"`
	Segments       []segmentDocument `json:"segments"`
}

type segmentDocument struct {
	StartSample   int64   `json:"start_sample"`
	EndSample     int64   `json:"end_sample"`
	StartSeconds  float64 `json:"start_time_seconds"`
	EndSeconds    float64 `json:"end_time_seconds"`
	Transcription *string `json:"transcription,omitempty"`
	AudioSlice    []byte  `json:"audio_slice,omitempty"`
}

// Marshal encodes p as an indented JSON document.
func Marshal(p *segment.Project) ([]byte, error) {
	if p == nil {
		return nil, services.Wrap(services.ErrSerialization, "project", "marshal", "nil project", nil)
	}
	doc := document{
		Name:           p.Name,
		SourceFilename: p.SourceFilename,
		SourceAudio:    p.SourceAudio,
		Segments:       make([]segmentDocument, len(p.Segments)),
	}
	for i, s := range p.Segments {
		doc.Segments[i] = segmentDocument{
			StartSample:   s.StartSample,
			EndSample:     s.EndSample,
			StartSeconds:  s.StartSeconds,
			EndSeconds:    s.EndSeconds,
			Transcription: s.Transcription,
			AudioSlice:    s.AudioSlice,
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, services.Wrap(services.ErrSerialization, "project", "marshal", "", err)
	}
	return data, nil
}

// Unmarshal decodes a project document. On error no project is returned.
func Unmarshal(data []byte) (*segment.Project, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, services.Wrap(services.ErrSerialization, "project", "unmarshal", "empty document", nil)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrSerialization, "project", "unmarshal", "", err)
	}
	p := &segment.Project{
		Name:           doc.Name,
		SourceFilename: doc.SourceFilename,
		SourceAudio:    doc.SourceAudio,
		Segments:       make([]segment.Segment, len(doc.Segments)),
	}
	for i, sd := range doc.Segments {
		s := segment.Segment{
			StartSample:  sd.StartSample,
			EndSample:    sd.EndSample,
			StartSeconds: sd.StartSeconds,
			EndSeconds:   sd.EndSeconds,
			AudioSlice:   sd.AudioSlice,
		}
		if sd.Transcription != nil {
			text := *sd.Transcription
			s.Transcription = &text
		}
		s.ResetTransient()
		p.Segments[i] = s
	}
	return p, nil
}

// Save writes p to path atomically.
func Save(path string, p *segment.Project) error {
	data, err := Marshal(p)
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrSerialization, "project", "save", path, err)
	}
	return nil
}

// Load reads a project from path.
func Load(path string) (*segment.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		marker := services.ErrSerialization
		if errors.Is(err, os.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return nil, services.Wrap(marker, "project", "load", path, err)
	}
	p, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := segment.Validate(p.Segments); err != nil {
		return nil, services.Wrap(services.ErrValidation, "project", "load", path, err)
	}
	return p, nil
}
