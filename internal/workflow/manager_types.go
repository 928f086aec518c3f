package workflow

import (
	"context"
	"log/slog"
	"time"

	"transcriber/internal/progress"
	"transcriber/internal/store"
)

// StageHandler performs one step of the project lifecycle.
type StageHandler interface {
	Execute(ctx context.Context, project *store.Project, logger *slog.Logger, report progress.Func) error
	HealthCheck(ctx context.Context) StageHealth
}

// StageSet bundles the concrete handlers the manager orchestrates.
type StageSet struct {
	Detection     StageHandler
	Transcription StageHandler
}

type pipelineStage struct {
	name             string
	handler          StageHandler
	startStatus      store.Status
	processingStatus store.Status
	doneStatus       store.Status
}

// Sweeper discards expired upload sessions.
type Sweeper interface {
	Sweep(now time.Time) int
}
