package audio

import (
	"context"
	"errors"
	"fmt"
	"math"

	"transcriber/internal/services"
)

// ErrInvalidRange reports a time window outside 0 <= start < end <= duration.
var ErrInvalidRange = errors.New("invalid time range")

// rangeTolerance absorbs float noise when end is computed from sample counts.
const rangeTolerance = 1e-6

// Converter normalizes non-WAV payloads to 16 kHz mono PCM WAV.
type Converter interface {
	ToWAV(ctx context.Context, payload []byte, format Format) ([]byte, error)
}

// Extractor cuts segment audio out of a whole-file payload.
type Extractor struct {
	Converter Converter
}

// NewExtractor returns an Extractor that uses conv for non-WAV payloads.
// conv may be nil when only WAV input is expected.
func NewExtractor(conv Converter) *Extractor {
	return &Extractor{Converter: conv}
}

// Load decodes payload into mono PCM, converting through the Converter when
// the container is not WAV.
func (e *Extractor) Load(ctx context.Context, payload []byte) (PCM, error) {
	if len(payload) == 0 {
		return PCM{}, fmt.Errorf("%w: empty payload", ErrCorruptPayload)
	}
	format := Sniff(payload)
	switch format {
	case FormatWAV:
		return DecodeWAV(payload)
	case FormatUnknown:
		return PCM{}, fmt.Errorf("%w: unrecognized container", ErrCorruptPayload)
	}
	if e == nil || e.Converter == nil {
		return PCM{}, fmt.Errorf("%w: no converter for %s", ErrCorruptPayload, format)
	}
	wavPayload, err := e.Converter.ToWAV(ctx, payload, format)
	if err != nil {
		return PCM{}, fmt.Errorf("%w: convert %s: %w", ErrCorruptPayload, format, err)
	}
	return DecodeWAV(wavPayload)
}

// Extract returns a standalone WAV holding [start,end) seconds of payload at
// the payload's sample rate. Malformed ranges are rejected before decoding.
func (e *Extractor) Extract(ctx context.Context, payload []byte, start, end float64) ([]byte, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	pcm, err := e.Load(ctx, payload)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extraction", "decode source", "", err)
	}
	return cut(pcm, start, end)
}

// Batch returns an extractor that decodes each distinct payload once and
// cuts every later range from the decoded samples. It is meant for the
// segments of a single project and is not safe for concurrent use.
func (e *Extractor) Batch() *BatchExtractor {
	return &BatchExtractor{extractor: e}
}

// BatchExtractor memoizes the most recently decoded payload.
type BatchExtractor struct {
	extractor *Extractor
	source    *byte
	size      int
	pcm       PCM
	loaded    bool
}

// Extract behaves like Extractor.Extract but reuses decoded samples when
// payload is the same slice as the previous call.
func (b *BatchExtractor) Extract(ctx context.Context, payload []byte, start, end float64) ([]byte, error) {
	if err := checkRange(start, end); err != nil {
		return nil, err
	}
	var head *byte
	if len(payload) > 0 {
		head = &payload[0]
	}
	if !b.loaded || head != b.source || len(payload) != b.size {
		pcm, err := b.extractor.Load(ctx, payload)
		if err != nil {
			return nil, services.Wrap(services.ErrExtraction, "extraction", "decode source", "", err)
		}
		b.source, b.size, b.pcm, b.loaded = head, len(payload), pcm, true
	}
	return cut(b.pcm, start, end)
}

func checkRange(start, end float64) error {
	if math.IsNaN(start) || math.IsNaN(end) || start < 0 || !(start < end) {
		msg := fmt.Sprintf("%.3fs-%.3fs is not a forward range", start, end)
		return services.Wrap(services.ErrExtraction, "extraction", "validate range", msg, ErrInvalidRange)
	}
	return nil
}

func cut(pcm PCM, start, end float64) ([]byte, error) {
	duration := pcm.Seconds()
	if end > duration+rangeTolerance {
		msg := fmt.Sprintf("%.3fs-%.3fs outside 0-%.3fs", start, end, duration)
		return nil, services.Wrap(services.ErrExtraction, "extraction", "validate range", msg, ErrInvalidRange)
	}
	slice := pcm.Slice(pcm.Index(start), pcm.Index(end))
	if len(slice.Samples) == 0 {
		msg := fmt.Sprintf("%.3fs-%.3fs holds no samples", start, end)
		return nil, services.Wrap(services.ErrExtraction, "extraction", "slice", msg, ErrInvalidRange)
	}
	encoded, err := EncodeWAV(slice)
	if err != nil {
		return nil, services.Wrap(services.ErrExtraction, "extraction", "encode slice", "", err)
	}
	return encoded, nil
}
