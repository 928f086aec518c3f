package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"transcriber/internal/audio"
	"transcriber/internal/export"
	"transcriber/internal/language"
	"transcriber/internal/logging"
	"transcriber/internal/media/ffprobe"
	"transcriber/internal/segment"
	"transcriber/internal/services"
	"transcriber/internal/store"
	"transcriber/internal/textutil"
)

// errRetryUnavailable reports a daemon built without a transcription stage.
var errRetryUnavailable = errors.New("segment retry not configured")

// probeSource reads container metadata for a newly registered source.
var probeSource = ffprobe.Inspect

// CreateProject registers a local audio file, typically an assembled upload,
// as a pending project. Detection picks it up on the next poll.
func (d *Daemon) CreateProject(ctx context.Context, name, sourcePath, sourceFilename string) (*store.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "project", "create", "name is required", nil)
	}
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return nil, services.Wrap(services.ErrValidation, "project", "create", "source path is required", nil)
	}
	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "project", "resolve source path", trimmed, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "project", "stat source file", absPath, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "project", "create", fmt.Sprintf("source path %q is a directory", absPath), nil)
	}
	if !audio.IsSupported(absPath) {
		return nil, services.Wrap(services.ErrValidation, "project", "create",
			fmt.Sprintf("unsupported audio format %q", filepath.Ext(absPath)), nil)
	}
	sourceFilename = filepath.Base(strings.TrimSpace(sourceFilename))
	if sourceFilename == "" || sourceFilename == "." {
		sourceFilename = filepath.Base(absPath)
	}

	project, err := d.store.NewProject(ctx, name, sourceFilename, absPath)
	if err != nil {
		return nil, err
	}
	d.logSource(ctx, project, info.Size())
	return project, nil
}

// logSource records the source duration and tagged language when ffprobe is
// available.
func (d *Daemon) logSource(ctx context.Context, project *store.Project, size int64) {
	attrs := []logging.Attr{
		logging.ProjectID(project.ID),
		logging.String("source", project.SourcePath),
		logging.Int64("bytes", size),
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if result, err := probeSource(probeCtx, d.cfg.FFprobeBinary(), project.SourcePath); err == nil {
		attrs = append(attrs, logging.Float64("duration_seconds", result.DurationSeconds()))
		if lang := result.Language(); lang != "" {
			attrs = append(attrs, logging.String("language", language.DisplayName(lang)))
		}
	} else {
		d.logger.Debug("source probe skipped", logging.Error(err))
	}
	d.logger.Info("project created", logging.Args(attrs...)...)
}

// QueueTranscription moves a segmented, finished or stopped project to the
// transcription queue. Segments that already hold text are kept. A stopped
// project without segments goes back to detection instead.
func (d *Daemon) QueueTranscription(ctx context.Context, id int64) (*store.Project, error) {
	project, err := d.project(ctx, id)
	if err != nil {
		return nil, err
	}
	switch project.Status {
	case store.StatusQueued:
		return project, nil
	case store.StatusFailed, store.StatusCanceled:
		segs, err := d.store.Segments(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(segs) == 0 {
			// Stopped before detection stored anything; detect again first.
			return d.store.Transition(ctx, id, store.StatusPending, "")
		}
	}
	return d.store.Transition(ctx, id, store.StatusQueued, "")
}

// CancelProject stops a queued or running project.
func (d *Daemon) CancelProject(ctx context.Context, id int64) (*store.Project, error) {
	if _, err := d.project(ctx, id); err != nil {
		return nil, err
	}
	return d.workflow.Cancel(ctx, id)
}

// RetrySegment re-transcribes one segment and stores the outcome.
func (d *Daemon) RetrySegment(ctx context.Context, id int64, index int) (segment.Segment, error) {
	if d.retrier == nil {
		return segment.Segment{}, services.Wrap(services.ErrConfiguration, "project", "retry segment", "", errRetryUnavailable)
	}
	project, err := d.project(ctx, id)
	if err != nil {
		return segment.Segment{}, err
	}
	if project.Status == store.StatusPending || project.Status == store.StatusDetecting {
		return segment.Segment{}, services.Wrap(services.ErrValidation, "project", "retry segment",
			fmt.Sprintf("project %d has no segments yet", id), store.ErrInvalidTransition)
	}
	return d.retrier.Retry(ctx, project, index)
}

// ExportDocument is a rendered project transcript.
type ExportDocument struct {
	Body     string
	Format   export.Format
	Filename string
}

// Export renders the project's segments in the named format.
func (d *Daemon) Export(ctx context.Context, id int64, formatName string) (ExportDocument, error) {
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return ExportDocument{}, services.Wrap(services.ErrValidation, "export", "parse format", "", err)
	}
	project, err := d.project(ctx, id)
	if err != nil {
		return ExportDocument{}, err
	}
	segs, err := d.store.Segments(ctx, id)
	if err != nil {
		return ExportDocument{}, err
	}
	body, err := export.Render(format, segs)
	if err != nil {
		return ExportDocument{}, err
	}
	name := textutil.SanitizeFileName(project.Name, fmt.Sprintf("project-%d", id))
	return ExportDocument{Body: body, Format: format, Filename: name + format.FileExtension()}, nil
}

// RemoveProject deletes an idle project. Sources staged under the upload
// directory are deleted with it.
func (d *Daemon) RemoveProject(ctx context.Context, id int64) error {
	project, err := d.project(ctx, id)
	if err != nil {
		return err
	}
	if project.Status.IsProcessing() {
		return services.Wrap(services.ErrValidation, "project", "remove",
			fmt.Sprintf("project %d is %s", id, project.Status), store.ErrInvalidTransition)
	}
	if _, err := d.store.Remove(ctx, id); err != nil {
		return err
	}
	if d.ownsSource(project.SourcePath) {
		if err := os.Remove(project.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove project source", logging.Error(err), logging.String("source", project.SourcePath))
		}
	}
	d.logger.Info("project removed", logging.ProjectID(id))
	return nil
}

func (d *Daemon) ownsSource(path string) bool {
	uploadDir := strings.TrimSpace(d.cfg.Paths.UploadDir)
	if uploadDir == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(uploadDir, path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)
}

func (d *Daemon) project(ctx context.Context, id int64) (*store.Project, error) {
	project, err := d.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, services.Wrap(services.ErrNotFound, "project", "lookup", fmt.Sprintf("project %d", id), nil)
	}
	return project, nil
}
