package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"transcriber/internal/logging"
	"transcriber/internal/store"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, logger *slog.Logger, project *store.Project, stageErr error) {
	message := classifyStageFailure(stageName, stageErr)
	m.setLastError(stageErr)

	logger.Error("stage failed",
		logging.String("resolved_status", string(store.StatusFailed)),
		logging.String("error_message", message),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldErrorHint, "fix the cause and requeue the project"),
	)

	failed, err := m.store.Transition(ctx, project.ID, store.StatusFailed, message)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not record stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
		return
	}
	m.setLastProject(failed)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr != nil {
		if message := strings.TrimSpace(stageErr.Error()); message != "" {
			return message
		}
	}
	if stageName != "" {
		return fmt.Sprintf("%s failed", stageName)
	}
	return "workflow failed"
}
