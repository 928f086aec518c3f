package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"transcriber/internal/segment"
	"transcriber/internal/services"
)

// ErrInvalidTransition reports a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

// NewProject inserts a project awaiting segment detection.
func (s *Store) NewProject(ctx context.Context, name, sourceFilename, sourcePath string) (*Project, error) {
	return s.insertProject(ctx, name, sourceFilename, sourcePath, StatusPending)
}

// NewSegmentedProject inserts a project whose segments are already known,
// such as an imported transcript, and stores the segments in one unit.
func (s *Store) NewSegmentedProject(ctx context.Context, name, sourceFilename, sourcePath string, segments []segment.Segment) (*Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "new project", "name is required", nil)
	}
	if err := segment.Validate(segments); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "new project", "", err)
	}
	now := timestampNow()
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects (name, source_filename, source_path, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			name, nullableString(sourceFilename), nullableString(sourcePath), StatusSegmented, now, now,
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertSegments(ctx, tx, id, segments)
	})
	if err != nil {
		return nil, fmt.Errorf("insert segmented project: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *Store) insertProject(ctx context.Context, name, sourceFilename, sourcePath string, status Status) (*Project, error) {
	if strings.TrimSpace(name) == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "new project", "name is required", nil)
	}
	now := timestampNow()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO projects (name, source_filename, source_path, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		name,
		nullableString(sourceFilename),
		nullableString(sourcePath),
		status,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a project. A missing project yields nil without error.
func (s *Store) GetByID(ctx context.Context, id int64) (*Project, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// List returns projects ordered by id, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// NextWithStatus returns the oldest project in status, or nil when none.
func (s *Store) NextWithStatus(ctx context.Context, status Status) (*Project, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+projectColumns+` FROM projects WHERE status = ? AND cancel_requested = 0 ORDER BY updated_at, id LIMIT 1`,
		status,
	)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next project: %w", err)
	}
	return p, nil
}

// Update persists every mutable column of p.
func (s *Store) Update(ctx context.Context, p *Project) error {
	if p == nil {
		return errors.New("project is nil")
	}
	p.UpdatedAt = time.Now().UTC()
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE projects
         SET name = ?, source_filename = ?, source_path = ?, status = ?, error_message = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             cancel_requested = ?, updated_at = ?
         WHERE id = ?`,
		p.Name,
		nullableString(p.SourceFilename),
		nullableString(p.SourcePath),
		p.Status,
		nullableString(p.ErrorMessage),
		nullableString(p.ProgressStage),
		p.ProgressPercent,
		nullableString(p.ProgressMessage),
		boolToInt(p.CancelRequested),
		timestamp(p.UpdatedAt),
		p.ID,
	); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// UpdateProgress records the current step of a running project.
func (s *Store) UpdateProgress(ctx context.Context, id int64, stage string, percent float64, message string) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE projects SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		percent,
		nullableString(message),
		timestampNow(),
		id,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Transition moves a project from its current status to next. The update is
// conditional on the stored status so concurrent writers cannot skip a step.
// The error message is replaced with errMessage (cleared when empty).
func (s *Store) Transition(ctx context.Context, id int64, next Status, errMessage string) (*Project, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, services.Wrap(services.ErrNotFound, "store", "transition", fmt.Sprintf("project %d", id), nil)
	}
	if !CanTransition(current.Status, next) {
		return nil, fmt.Errorf("%w: project %d %s -> %s", ErrInvalidTransition, id, current.Status, next)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE projects
         SET status = ?, error_message = ?, cancel_requested = CASE WHEN ? THEN 0 ELSE cancel_requested END,
             progress_stage = NULL, progress_percent = 0, progress_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		next,
		nullableString(errMessage),
		boolToInt(next == StatusQueued || next == StatusPending || next == StatusCanceled),
		timestampNow(),
		id,
		current.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("transition project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: project %d changed status concurrently", ErrInvalidTransition, id)
	}
	return s.GetByID(ctx, id)
}

// RequestCancel flags a project for cancellation. Idle projects move to
// canceled immediately; running ones are stopped by the workflow.
func (s *Store) RequestCancel(ctx context.Context, id int64) (*Project, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, services.Wrap(services.ErrNotFound, "store", "cancel", fmt.Sprintf("project %d", id), nil)
	}
	switch {
	case p.Status.IsProcessing():
		res, err := s.execWithRetry(ctx,
			`UPDATE projects SET cancel_requested = 1, updated_at = ? WHERE id = ? AND status = ?`,
			timestampNow(), id, p.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("request cancel: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// The step finished meanwhile; cancel whatever state it reached.
			return s.RequestCancel(ctx, id)
		}
		return s.GetByID(ctx, id)
	case CanTransition(p.Status, StatusCanceled):
		return s.Transition(ctx, id, StatusCanceled, UserCancelReason)
	default:
		return nil, fmt.Errorf("%w: project %d is %s", ErrInvalidTransition, id, p.Status)
	}
}

// Remove deletes a project and its segments.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
