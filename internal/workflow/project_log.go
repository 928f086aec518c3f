package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"transcriber/internal/config"
	"transcriber/internal/logging"
	"transcriber/internal/store"
)

// ProjectLogger manages dedicated log files for individual projects.
type ProjectLogger struct {
	baseDir string
	level   string
}

// NewProjectLogger places project logs under {log_dir}/projects.
func NewProjectLogger(cfg *config.Config) *ProjectLogger {
	pl := &ProjectLogger{level: "info"}
	if cfg != nil {
		if strings.TrimSpace(cfg.Paths.LogDir) != "" {
			pl.baseDir = filepath.Join(cfg.Paths.LogDir, "projects")
		}
		if strings.TrimSpace(cfg.Logging.Level) != "" {
			pl.level = cfg.Logging.Level
		}
	}
	return pl
}

// Path returns the log file for a project.
func (p *ProjectLogger) Path(project *store.Project) string {
	if p == nil || p.baseDir == "" || project == nil {
		return ""
	}
	slug := sanitizeSlug(project.Name)
	if slug == "" {
		slug = "untitled"
	}
	return filepath.Join(p.baseDir, fmt.Sprintf("project-%d-%s.log", project.ID, slug))
}

// Open returns a JSON handler appending to the project's log file.
func (p *ProjectLogger) Open(project *store.Project) (slog.Handler, io.Closer, error) {
	path := p.Path(project)
	if path == "" {
		return nil, nil, fmt.Errorf("project log directory not configured")
	}
	return logging.NewFileHandler(path, logging.Options{Level: p.level, Format: "json"})
}

// stageLogger tees the manager log into the project's own file. The returned
// func closes the file.
func (m *Manager) stageLogger(ctx context.Context, project *store.Project) (*slog.Logger, func()) {
	base := m.logger.With(logging.ProjectID(project.ID))
	handler, closer, err := m.projectLogs.Open(project)
	if err != nil {
		base.Warn("project log unavailable", logging.Error(err))
		return logging.WithContext(ctx, base), func() {}
	}
	logger := logging.TeeLogger(base, handler.WithAttrs([]slog.Attr{logging.ProjectID(project.ID)}))
	return logging.WithContext(ctx, logger), func() { _ = closer.Close() }
}

func sanitizeSlug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}
