package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"transcriber/internal/logging"
	"transcriber/internal/store"
)

// Start resets projects left mid-step by a previous run and begins
// background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.stages) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}
	stages := append([]pipelineStage(nil), m.stages...)
	m.mu.Unlock()

	reset, err := m.store.ResetStuck(ctx)
	if err != nil {
		return fmt.Errorf("reset stuck projects: %w", err)
	}
	if reset > 0 {
		m.logger.Info("reset projects left in processing",
			logging.Int64("count", reset),
			logging.String(logging.FieldEventType, "stuck_reset"),
		)
	}

	m.mu.Lock()
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx, stages)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Cancel requests cancellation of a project. An idle project moves to
// canceled right away; a running one stops before its next segment.
func (m *Manager) Cancel(ctx context.Context, id int64) (*store.Project, error) {
	p, err := m.store.RequestCancel(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	stop := m.active[id]
	m.mu.RUnlock()
	if stop != nil {
		stop()
	}
	return p, nil
}

// Active reports the id of the project being processed, if any.
func (m *Manager) Active() (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id := range m.active {
		return id, true
	}
	return 0, false
}

func (m *Manager) run(ctx context.Context, stages []pipelineStage) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.sweepUploads()

		stg, project, err := m.nextProject(ctx, stages)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleNextProjectError(ctx, err)
			continue
		}
		if project == nil {
			m.waitForProjectOrShutdown(ctx)
			continue
		}

		if err := m.processProject(ctx, stg, project); err != nil && ctx.Err() != nil {
			return
		}
	}
}

func (m *Manager) nextProject(ctx context.Context, stages []pipelineStage) (pipelineStage, *store.Project, error) {
	for _, stg := range stages {
		p, err := m.store.NextWithStatus(ctx, stg.startStatus)
		if err != nil {
			return pipelineStage{}, nil, err
		}
		if p != nil {
			return stg, p, nil
		}
	}
	return pipelineStage{}, nil, nil
}

func (m *Manager) sweepUploads() {
	if m.sweeper == nil {
		return
	}
	if n := m.sweeper.Sweep(m.now()); n > 0 {
		m.logger.Info("expired idle upload sessions", logging.Int("count", n))
	}
}

func (m *Manager) handleNextProjectError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to fetch next project",
		logging.Error(err),
		logging.String(logging.FieldEventType, "store_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check project database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.retryInterval):
	}
}

func (m *Manager) waitForProjectOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

// watchCancel polls the store for a cancel request made by another process
// (the CLI against a shared database) and stops the running project.
func (m *Manager) watchCancel(ctx context.Context, id int64, stop context.CancelFunc) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p, err := m.store.GetByID(ctx, id)
			if err != nil || p == nil {
				continue
			}
			if p.CancelRequested {
				stop()
				return
			}
		}
	}
}
