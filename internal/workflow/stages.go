package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"transcriber/internal/logging"
	"transcriber/internal/orchestrator"
	"transcriber/internal/progress"
	"transcriber/internal/segment"
	"transcriber/internal/services"
	"transcriber/internal/store"
)

// Detector finds speech segments in an audio file.
type Detector interface {
	Detect(ctx context.Context, path string, report progress.Func) ([]segment.Segment, error)
}

// Runner transcribes the segments of a project.
type Runner interface {
	TranscribeAll(ctx context.Context, project *segment.Project, opts orchestrator.Options) (orchestrator.Summary, error)
	Retry(ctx context.Context, project *segment.Project, index int) (segment.Segment, error)
}

// DetectionStage replaces a project's segments with detected speech.
type DetectionStage struct {
	Detector Detector
	Store    *store.Store
}

// Execute runs detection over the project's source file.
func (d *DetectionStage) Execute(ctx context.Context, project *store.Project, logger *slog.Logger, report progress.Func) error {
	if strings.TrimSpace(project.SourcePath) == "" {
		return services.Wrap(services.ErrValidation, "detection", "execute", "project has no source audio", nil)
	}
	segs, err := d.Detector.Detect(ctx, project.SourcePath, report)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		logging.WarnWithContext(logger, "no speech detected", "no_speech",
			logging.String("source_file", project.SourcePath),
			logging.String(logging.FieldImpact, "project has no segments to transcribe"),
		)
	}
	if err := d.Store.ReplaceSegments(ctx, project.ID, segs); err != nil {
		return fmt.Errorf("store segments: %w", err)
	}
	report.Emit("Segments stored", 100, fmt.Sprintf("%d segments", len(segs)))
	return nil
}

// HealthCheck reports whether a detector is wired.
func (d *DetectionStage) HealthCheck(context.Context) StageHealth {
	if d == nil || d.Detector == nil {
		return UnhealthyStage("detection", "detector not configured")
	}
	return HealthyStage("detection")
}

// TranscriptionStage transcribes every pending segment of a project,
// persisting each outcome as it arrives.
type TranscriptionStage struct {
	Runner Runner
	Store  *store.Store
	// LoadAudio reads the whole-file source payload; defaults to os.ReadFile.
	LoadAudio func(path string) ([]byte, error)
	// Ready reports a configuration problem that blocks transcription.
	Ready func() error

	mu   sync.Mutex
	busy map[int64]chan struct{}
}

// claim marks the project as in use by this stage. With wait set it blocks
// until the current holder releases; otherwise it fails immediately.
func (t *TranscriptionStage) claim(ctx context.Context, id int64, wait bool) (func(), error) {
	for {
		t.mu.Lock()
		held, taken := t.busy[id]
		if !taken {
			if t.busy == nil {
				t.busy = make(map[int64]chan struct{})
			}
			done := make(chan struct{})
			t.busy[id] = done
			t.mu.Unlock()
			return func() {
				t.mu.Lock()
				delete(t.busy, id)
				t.mu.Unlock()
				close(done)
			}, nil
		}
		t.mu.Unlock()
		if !wait {
			return nil, services.Wrap(services.ErrValidation, "transcription", "claim project",
				fmt.Sprintf("project %d is busy", id), store.ErrInvalidTransition)
		}
		select {
		case <-held:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Execute transcribes the project. Segments already done are left alone so
// a requeued project only retries what is missing or failed.
func (t *TranscriptionStage) Execute(ctx context.Context, project *store.Project, logger *slog.Logger, report progress.Func) error {
	if t.Ready != nil {
		if err := t.Ready(); err != nil {
			return err
		}
	}
	release, err := t.claim(ctx, project.ID, true)
	if err != nil {
		return err
	}
	defer release()
	domain, err := t.load(ctx, project)
	if err != nil {
		return err
	}
	total := len(domain.Segments)
	report.Emit("Transcribing", 0, fmt.Sprintf("0/%d segments", total))

	visited := 0
	summary, runErr := t.Runner.TranscribeAll(ctx, domain, orchestrator.Options{
		SkipDone: true,
		OnUpdate: func(u orchestrator.Update) {
			if u.Kind == orchestrator.UpdateStarted {
				return
			}
			visited++
			if u.Kind != orchestrator.UpdateSkipped {
				// Persist even after a cancel so the in-flight result is kept.
				if err := t.Store.UpdateSegment(context.WithoutCancel(ctx), project.ID, u.Index, u.Segment); err != nil {
					logging.WarnWithContext(logger, "failed to persist segment", "segment_persist_failed",
						logging.SegmentIndex(u.Index),
						logging.Error(err),
						logging.String(logging.FieldImpact, "segment result lost on restart"),
					)
				}
			}
			report.Emit("Transcribing", float64(visited)*100/float64(max(total, 1)),
				fmt.Sprintf("%d/%d segments", visited, total))
		},
	})
	logger.Info("transcription summary",
		logging.Int("completed", summary.Completed),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("canceled", summary.Canceled),
	)
	return runErr
}

// Retry re-transcribes one segment of a project that is neither queued nor
// being processed and stores the outcome. Only one retry or run per project
// proceeds at a time; concurrent callers are rejected.
func (t *TranscriptionStage) Retry(ctx context.Context, project *store.Project, index int) (segment.Segment, error) {
	if project.Status == store.StatusTranscribing || project.Status == store.StatusQueued {
		return segment.Segment{}, services.Wrap(services.ErrValidation, "transcription", "retry",
			fmt.Sprintf("project %d is %s", project.ID, project.Status), store.ErrInvalidTransition)
	}
	if t.Ready != nil {
		if err := t.Ready(); err != nil {
			return segment.Segment{}, err
		}
	}
	release, err := t.claim(ctx, project.ID, false)
	if err != nil {
		return segment.Segment{}, err
	}
	defer release()
	domain, err := t.load(ctx, project)
	if err != nil {
		return segment.Segment{}, err
	}
	seg, err := t.Runner.Retry(ctx, domain, index)
	if err != nil {
		return seg, err
	}
	if err := t.Store.UpdateSegment(ctx, project.ID, index, seg); err != nil {
		return seg, err
	}
	return seg, nil
}

func (t *TranscriptionStage) load(ctx context.Context, project *store.Project) (*segment.Project, error) {
	segs, err := t.Store.Segments(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	domain := &segment.Project{
		Name:           project.Name,
		SourceFilename: project.SourceFilename,
		SourcePath:     project.SourcePath,
		Segments:       segs,
	}
	if domain.NeedsSourceAudio() {
		load := t.LoadAudio
		if load == nil {
			load = os.ReadFile
		}
		payload, err := load(project.SourcePath)
		if err != nil {
			return nil, services.Wrap(services.ErrNotFound, "transcription", "load source audio", project.SourcePath, err)
		}
		domain.SourceAudio = payload
	}
	return domain, nil
}

// HealthCheck reports whether transcription can run.
func (t *TranscriptionStage) HealthCheck(context.Context) StageHealth {
	if t == nil || t.Runner == nil {
		return UnhealthyStage("transcription", "transcriber not configured")
	}
	if t.Ready != nil {
		if err := t.Ready(); err != nil {
			return UnhealthyStage("transcription", err.Error())
		}
	}
	return HealthyStage("transcription")
}
