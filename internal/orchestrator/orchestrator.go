// Package orchestrator drives segment transcription for a project.
//
// Segments are visited strictly in order, one request at a time. Each
// segment goes through its explicit state transitions and every transition
// is reported to the caller as an Update value. A failure on one segment is
// recorded on that segment and the batch continues. Cancellation is checked
// between segments and during pacing; a request already in flight finishes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"transcriber/internal/audio"
	"transcriber/internal/logging"
	"transcriber/internal/pacing"
	"transcriber/internal/segment"
	"transcriber/internal/services"
	"transcriber/internal/transcribe"
)

// NoAudioMessage is recorded on segments with neither a slice nor source audio.
const NoAudioMessage = "no audio available"

// Transcriber turns one segment's audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, index int) (string, error)
}

// Extractor cuts a time range out of whole-file audio.
type Extractor interface {
	Extract(ctx context.Context, payload []byte, start, end float64) ([]byte, error)
}

// batcher is implemented by extractors that can keep the decoded source
// around for the segments of one run.
type batcher interface {
	Batch() *audio.BatchExtractor
}

// UpdateKind names a per-segment transition.
type UpdateKind string

const (
	UpdateStarted   UpdateKind = "started"
	UpdateCompleted UpdateKind = "completed"
	UpdateFailed    UpdateKind = "failed"
	UpdateSkipped   UpdateKind = "skipped"
)

// Update reports one transition. Segment is a deep copy taken after the move.
type Update struct {
	Index   int
	Total   int
	Kind    UpdateKind
	Segment segment.Segment
}

// Options tune a batch run.
type Options struct {
	// OnUpdate receives every transition on the calling goroutine.
	OnUpdate func(Update)
	// SkipDone leaves already transcribed segments untouched.
	SkipDone bool
}

// Summary is the outcome of a batch.
type Summary struct {
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Canceled  bool `json:"canceled"`
}

// Orchestrator owns the collaborators used for a batch.
type Orchestrator struct {
	Transcriber Transcriber
	Extractor   Extractor
	Pacer       pacing.Pacer
	Logger      *slog.Logger
}

// New builds an Orchestrator. A nil pacer uses the reference delay.
func New(t Transcriber, e Extractor, p pacing.Pacer, logger *slog.Logger) *Orchestrator {
	if p == nil {
		p = pacing.NewFixedDelay(pacing.DefaultDelay)
	}
	return &Orchestrator{
		Transcriber: t,
		Extractor:   e,
		Pacer:       p,
		Logger:      logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// TranscribeAll transcribes every segment of project in order. It returns
// context.Canceled (with Summary.Canceled set) when ctx ends mid-batch.
func (o *Orchestrator) TranscribeAll(ctx context.Context, project *segment.Project, opts Options) (Summary, error) {
	if project == nil {
		return Summary{}, services.Wrap(services.ErrValidation, "transcription", "transcribe all", "nil project", nil)
	}
	total := len(project.Segments)
	summary := Summary{Total: total}
	logger := logging.WithContext(ctx, o.Logger)
	logger.Info("transcription batch started", logging.Int("segments", total), logging.String("project", project.Name))
	extractor := o.batchExtractor()

	for i := range project.Segments {
		if err := ctx.Err(); err != nil {
			summary.Canceled = true
			summary.Skipped += total - i
			logger.Info("transcription batch canceled", logging.Int("remaining", total-i))
			return summary, err
		}
		seg := &project.Segments[i]
		if opts.SkipDone && seg.State() == segment.StateDone {
			summary.Skipped++
			emit(opts, Update{Index: i, Total: total, Kind: UpdateSkipped, Segment: seg.Clone()})
			continue
		}

		if o.process(ctx, extractor, project, i, total, opts) {
			summary.Completed++
		} else {
			summary.Failed++
		}

		if i == total-1 {
			break
		}
		if err := o.Pacer.Wait(ctx); err != nil {
			summary.Canceled = true
			summary.Skipped += total - i - 1
			logger.Info("transcription batch canceled", logging.Int("remaining", total-i-1))
			return summary, err
		}
	}

	logger.Info("transcription batch finished",
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

// Retry re-runs the per-segment transitions for a single segment.
func (o *Orchestrator) Retry(ctx context.Context, project *segment.Project, index int) (segment.Segment, error) {
	if project == nil {
		return segment.Segment{}, services.Wrap(services.ErrValidation, "transcription", "retry", "nil project", nil)
	}
	seg, err := project.Segment(index)
	if err != nil {
		return segment.Segment{}, services.Wrap(services.ErrValidation, "transcription", "retry", "", err)
	}
	if err := ctx.Err(); err != nil {
		return seg.Clone(), err
	}
	if seg.Transcribing {
		return seg.Clone(), services.Wrap(services.ErrValidation, "transcription", "retry",
			fmt.Sprintf("segment %d already transcribing", index), segment.ErrInvalidTransition)
	}
	o.process(ctx, o.Extractor, project, index, len(project.Segments), Options{})
	return seg.Clone(), nil
}

// process runs one segment through Begin and Complete or Fail, reporting
// each move. It returns true when the segment ends Done.
func (o *Orchestrator) process(ctx context.Context, extractor Extractor, project *segment.Project, index, total int, opts Options) bool {
	seg := &project.Segments[index]
	ctx = services.WithSegmentIndex(ctx, index)
	logger := logging.WithContext(ctx, o.Logger)

	if err := seg.Begin(); err != nil {
		logging.WarnWithContext(logger, "segment already in progress", "segment_busy",
			logging.Error(err),
			logging.String(logging.FieldImpact, "segment left unchanged"),
		)
		return false
	}
	emit(opts, Update{Index: index, Total: total, Kind: UpdateStarted, Segment: seg.Clone()})

	fail := func(message string, err error) bool {
		_ = seg.Fail(message)
		logging.WarnWithContext(logger, "segment transcription failed", "segment_failed",
			logging.String("reason", message),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "retry the segment once the cause is fixed"),
			logging.String(logging.FieldImpact, "segment left without transcription"),
		)
		emit(opts, Update{Index: index, Total: total, Kind: UpdateFailed, Segment: seg.Clone()})
		return false
	}

	payload, err := resolveAudio(ctx, extractor, project, seg)
	if err != nil {
		return fail(Message(err), err)
	}

	// The request is never interrupted mid-flight; cancellation is observed
	// before the next segment instead.
	text, err := o.Transcriber.Transcribe(context.WithoutCancel(ctx), payload, index)
	if err != nil {
		return fail(Message(err), err)
	}
	_ = seg.Complete(text)
	logger.Debug("segment transcribed", logging.Int("chars", len(text)))
	emit(opts, Update{Index: index, Total: total, Kind: UpdateCompleted, Segment: seg.Clone()})
	return true
}

var errNoAudio = errors.New(NoAudioMessage)

// batchExtractor returns an extractor that decodes the source at most once
// for the run, falling back to the configured one.
func (o *Orchestrator) batchExtractor() Extractor {
	if b, ok := o.Extractor.(batcher); ok {
		return b.Batch()
	}
	return o.Extractor
}

func resolveAudio(ctx context.Context, extractor Extractor, project *segment.Project, seg *segment.Segment) ([]byte, error) {
	if seg.HasAudio() {
		return seg.AudioSlice, nil
	}
	if len(project.SourceAudio) == 0 || extractor == nil {
		return nil, services.Wrap(services.ErrExtraction, "transcription", "resolve audio", "", errNoAudio)
	}
	return extractor.Extract(ctx, project.SourceAudio, seg.StartSeconds, seg.EndSeconds)
}

// Message renders err the way it is stored on a segment.
func Message(err error) string {
	var apiErr *transcribe.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errNoAudio):
		return NoAudioMessage
	case errors.As(err, &apiErr):
		return apiErr.Error()
	default:
		return err.Error()
	}
}

func emit(opts Options, u Update) {
	if opts.OnUpdate != nil {
		opts.OnUpdate(u)
	}
}
