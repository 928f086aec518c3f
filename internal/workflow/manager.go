package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"transcriber/internal/config"
	"transcriber/internal/logging"
	"transcriber/internal/store"
)

// Manager coordinates project processing using registered stage handlers.
type Manager struct {
	cfg           *config.Config
	store         *store.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	projectLogs   *ProjectLogger
	sweeper       Sweeper
	now           func() time.Time

	stages []pipelineStage

	mu          sync.RWMutex
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	lastErr     error
	lastProject *store.Project
	active      map[int64]context.CancelFunc
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithSweeper registers the upload receiver whose idle sessions are expired
// on every poll.
func WithSweeper(s Sweeper) ManagerOption {
	return func(m *Manager) {
		m.sweeper = s
	}
}

// WithPollInterval overrides the idle wait between store polls.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// NewManager constructs a workflow manager. Stages are registered separately
// with ConfigureStages.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:           cfg,
		store:         st,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		pollInterval:  time.Duration(cfg.Workflow.PollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		projectLogs:   NewProjectLogger(cfg),
		now:           time.Now,
		active:        make(map[int64]context.CancelFunc),
	}
	if m.pollInterval <= 0 {
		m.pollInterval = time.Second
	}
	if m.retryInterval <= 0 {
		m.retryInterval = m.pollInterval
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	var stages []pipelineStage
	if set.Detection != nil {
		stages = append(stages, pipelineStage{
			name:             "detection",
			handler:          set.Detection,
			startStatus:      store.StatusPending,
			processingStatus: store.StatusDetecting,
			doneStatus:       store.StatusSegmented,
		})
	}
	if set.Transcription != nil {
		stages = append(stages, pipelineStage{
			name:             "transcription",
			handler:          set.Transcription,
			startStatus:      store.StatusQueued,
			processingStatus: store.StatusTranscribing,
			doneStatus:       store.StatusCompleted,
		})
	}

	m.mu.Lock()
	m.stages = stages
	m.mu.Unlock()
}
