package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"transcriber/internal/logging"
	"transcriber/internal/progress"
	"transcriber/internal/services"
	"transcriber/internal/store"
)

func (m *Manager) processProject(ctx context.Context, stg pipelineStage, project *store.Project) error {
	started, err := m.store.Transition(ctx, project.ID, stg.processingStatus, "")
	if err != nil {
		m.logger.Warn("failed to move project into processing",
			logging.ProjectID(project.ID),
			logging.Stage(stg.name),
			logging.Error(err),
			logging.String(logging.FieldEventType, "transition_failed"),
			logging.String(logging.FieldImpact, "project skipped until the next poll"),
		)
		m.setLastError(err)
		return err
	}
	project = started

	stageCtx := withStageContext(ctx, stg.name, project, uuid.NewString())
	projectCtx, stop := context.WithCancel(stageCtx)
	defer stop()
	m.setActive(project.ID, stop)
	defer m.clearActive(project.ID)
	go m.watchCancel(projectCtx, project.ID, stop)

	logger, closeLog := m.stageLogger(stageCtx, project)
	defer closeLog()

	return m.executeStage(ctx, projectCtx, stg, logger, project)
}

func (m *Manager) executeStage(ctx, projectCtx context.Context, stg pipelineStage, logger *slog.Logger, project *store.Project) error {
	stageStart := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("project_name", project.Name),
		logging.String("source_file", project.SourcePath),
	)

	report := progress.Multi(progress.Logger(logger), m.progressRecorder(ctx, project.ID))
	execErr := stg.handler.Execute(projectCtx, project, logger, report)

	switch {
	case execErr == nil:
		done, err := m.store.Transition(ctx, project.ID, stg.doneStatus, "")
		if err != nil {
			wrapped := fmt.Errorf("persist stage result: %w", err)
			logger.Error("failed to persist stage result", logging.Error(wrapped))
			m.setLastError(wrapped)
			return wrapped
		}
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("next_status", string(done.Status)),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		m.setLastProject(done)
		return nil

	case errors.Is(execErr, context.Canceled) && ctx.Err() != nil:
		logger.Debug("stage interrupted by shutdown")
		return execErr

	case errors.Is(execErr, context.Canceled):
		canceled, err := m.store.Transition(ctx, project.ID, store.StatusCanceled, store.UserCancelReason)
		if err != nil {
			logger.Error("failed to persist cancellation", logging.Error(err))
			m.setLastError(err)
			return err
		}
		logger.Info("stage canceled",
			logging.String(logging.FieldEventType, "stage_canceled"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		m.setLastProject(canceled)
		return nil

	default:
		m.handleStageFailure(ctx, stg.name, logger, project, execErr)
		return execErr
	}
}

// progressRecorder persists progress events on the project row. Writes use
// the manager context so a per-project cancel does not drop the last event.
func (m *Manager) progressRecorder(ctx context.Context, id int64) progress.Func {
	return func(ev progress.Event) {
		if err := m.store.UpdateProgress(ctx, id, ev.Step, ev.Percent, ev.Details); err != nil && ctx.Err() == nil {
			m.logger.Debug("failed to persist progress", logging.ProjectID(id), logging.Error(err))
		}
	}
}

func withStageContext(ctx context.Context, stageName string, project *store.Project, requestID string) context.Context {
	if project != nil {
		ctx = services.WithProjectID(ctx, project.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func (m *Manager) setActive(id int64, stop context.CancelFunc) {
	m.mu.Lock()
	m.active[id] = stop
	m.mu.Unlock()
}

func (m *Manager) clearActive(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}
