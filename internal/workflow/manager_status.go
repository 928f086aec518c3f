package workflow

import (
	"context"

	"transcriber/internal/logging"
	"transcriber/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running       bool                 `json:"running"`
	ActiveProject int64                `json:"active_project,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
	LastProject   *store.Project       `json:"last_project,omitempty"`
	ProjectStats  map[store.Status]int `json:"project_stats"`
	StageHealth   []StageHealth        `json:"stage_health"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lastErr := m.lastErr
	lastProject := m.lastProject
	stages := append([]pipelineStage(nil), m.stages...)
	m.mu.RUnlock()

	stats, err := m.store.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read project stats", logging.Error(err))
	}

	summary := StatusSummary{Running: running, ProjectStats: stats}
	if id, ok := m.Active(); ok {
		summary.ActiveProject = id
	}
	for _, stg := range stages {
		summary.StageHealth = append(summary.StageHealth, stg.handler.HealthCheck(ctx))
	}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	if lastProject != nil {
		copy := *lastProject
		summary.LastProject = &copy
	}
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastProject(p *store.Project) {
	m.mu.Lock()
	if p != nil {
		copy := *p
		m.lastProject = &copy
	} else {
		m.lastProject = nil
	}
	m.mu.Unlock()
}

// ProjectLogPath returns the dedicated log file for project.
func (m *Manager) ProjectLogPath(project *store.Project) string {
	return m.projectLogs.Path(project)
}
