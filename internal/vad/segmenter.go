package vad

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"transcriber/internal/audio"
	"transcriber/internal/logging"
	"transcriber/internal/progress"
	"transcriber/internal/segment"
	"transcriber/internal/services"
)

// Loader decodes a whole-file payload into mono PCM.
type Loader interface {
	Load(ctx context.Context, payload []byte) (audio.PCM, error)
}

// Segmenter runs speech detection over a file.
type Segmenter struct {
	Detector    Detector
	Loader      Loader
	MaxMergeGap float64
	Logger      *slog.Logger
}

// NewSegmenter wires a Segmenter; nil arguments fall back to defaults.
func NewSegmenter(detector Detector, loader Loader, logger *slog.Logger) *Segmenter {
	if detector == nil {
		detector = NewEnergyDetector()
	}
	if loader == nil {
		loader = audio.NewExtractor(nil)
	}
	return &Segmenter{
		Detector:    detector,
		Loader:      loader,
		MaxMergeGap: DefaultMaxMergeGap,
		Logger:      logging.NewComponentLogger(logger, "vad"),
	}
}

// Detect returns the speech segments of the file at path, each carrying its
// own 16 kHz WAV slice.
func (s *Segmenter) Detect(ctx context.Context, path string, report progress.Func) ([]segment.Segment, error) {
	format := audio.FormatFromPath(path)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	report.Emit("Validating file format", 5, "Detected format: "+ext)
	if format == audio.FormatUnknown {
		return nil, services.Wrap(services.ErrDetection, "detection", "validate format",
			fmt.Sprintf("unsupported audio format %q (supported: wav, mp3, m4a, aac, flac, ogg)", ext), services.ErrValidation)
	}

	report.Emit("Decoding audio file", 10, "Reading and decoding audio data")
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrDetection, "detection", "read file", path, err)
	}
	pcm, err := s.Loader.Load(ctx, payload)
	if err != nil {
		return nil, services.Wrap(services.ErrDetection, "detection", "decode", path, err)
	}
	if len(pcm.Samples) == 0 {
		return nil, services.Wrap(services.ErrDetection, "detection", "decode", "audio file is empty", audio.ErrNoSamples)
	}
	report.Emit("Audio decoded", 25, fmt.Sprintf("%d samples at %d Hz", len(pcm.Samples), pcm.Rate))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if pcm.Rate != audio.TargetSampleRate {
		report.Emit("Resampling audio", 35, fmt.Sprintf("Converting from %d Hz to %d Hz", pcm.Rate, audio.TargetSampleRate))
		pcm = audio.Resample(pcm, audio.TargetSampleRate)
		report.Emit("Audio resampled", 45, fmt.Sprintf("%d samples at %d Hz", len(pcm.Samples), pcm.Rate))
	}

	report.Emit("Running voice activity detection", 50, "Initializing voice detection")
	report.Emit("Analyzing speech patterns", 60, "Processing audio chunks for speech detection")
	labels := s.Detector.Label(pcm.Samples)
	report.Emit("Speech detection complete", 75, fmt.Sprintf("Processed %d audio chunks", len(labels)))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Emit("Extracting speech segments", 80, "Converting detection results to segments")
	spans := Runs(labels, s.Detector.FrameSize(), len(pcm.Samples))

	report.Emit("Optimizing segments", 90, fmt.Sprintf("Found %d initial segments", len(spans)))
	mergedSpans := Merge(spans, pcm.Rate, s.MaxMergeGap, report)
	merged, err := Build(mergedSpans, pcm)
	if err != nil {
		return nil, services.Wrap(services.ErrDetection, "detection", "slice segments", "", err)
	}
	report.Emit("Segmentation complete", 95, fmt.Sprintf("Optimized to %d final segments", len(merged)))

	if s.Logger != nil {
		s.Logger.Info("speech detection finished",
			logging.String("path", path),
			logging.Int("initial_segments", len(spans)),
			logging.Int("segments", len(merged)),
			logging.Float64("duration_seconds", pcm.Seconds()),
		)
	}
	return merged, nil
}

// Span is a half-open sample range [From, To).
type Span struct {
	From, To int
}

// Runs converts frame labels into sample spans over total samples. Each run
// of speech frames becomes one span; a run reaching the end closes at total.
func Runs(labels []bool, frameSize, total int) []Span {
	var out []Span
	start := -1
	closeRun := func(from, to int) {
		to = min(to, total)
		if from < to {
			out = append(out, Span{From: from, To: to})
		}
	}
	for i, speech := range labels {
		switch {
		case speech && start < 0:
			start = i * frameSize
		case !speech && start >= 0:
			closeRun(start, i*frameSize)
			start = -1
		}
	}
	if start >= 0 {
		closeRun(start, total)
	}
	return out
}

// Merge joins neighbouring spans whose gap is at most maxGap seconds at rate.
// The merged span runs from the first start to the later end, gap included.
func Merge(spans []Span, rate int, maxGap float64, report progress.Func) []Span {
	if len(spans) == 0 || rate <= 0 {
		return spans
	}
	sorted := append([]Span(nil), spans...)
	slices.SortFunc(sorted, func(a, b Span) int { return cmp.Compare(a.From, b.From) })

	maxGapSamples := maxGap * float64(rate)
	merged := make([]Span, 0, len(sorted))
	current := sorted[0]
	total := len(sorted)
	for i, next := range sorted[1:] {
		processed := i + 1
		if processed%10 == 0 || processed == total-1 {
			report.Emit("Merging segments", progress.Scale(float64(processed)/float64(total), 90, 95),
				fmt.Sprintf("Processed %d/%d segments", processed, total))
		}
		if float64(next.From-current.To) <= maxGapSamples {
			current.To = max(current.To, next.To)
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// Build turns spans into segments, encoding each span's audio once.
func Build(spans []Span, pcm audio.PCM) ([]segment.Segment, error) {
	out := make([]segment.Segment, 0, len(spans))
	for _, span := range spans {
		seg, err := slice(pcm, span.From, span.To)
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}

func slice(pcm audio.PCM, from, to int) (segment.Segment, error) {
	part := pcm.Slice(from, to)
	encoded, err := audio.EncodeWAV(part)
	if err != nil {
		return segment.Segment{}, err
	}
	rate := float64(pcm.Rate)
	return segment.Segment{
		StartSample:  int64(from),
		EndSample:    int64(to),
		StartSeconds: float64(from) / rate,
		EndSeconds:   float64(to) / rate,
		AudioSlice:   encoded,
	}, nil
}
