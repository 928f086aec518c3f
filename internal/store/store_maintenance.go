package store

import (
	"context"
	"fmt"
)

// Stats returns a count of projects grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM projects GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Summarize folds Stats into the counts shown by status output.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	for status, count := range stats {
		summary.Total += count
		switch {
		case status == StatusPending || status == StatusSegmented || status == StatusQueued:
			summary.Pending += count
		case status.IsProcessing():
			summary.Processing += count
		case status == StatusCompleted:
			summary.Completed += count
		case status == StatusFailed:
			summary.Failed += count
		}
	}
	return summary, nil
}

// ResetStuck returns projects left in a processing status by an unclean
// shutdown to the status that feeds that step. Segments caught mid-request
// keep their last stored outcome.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE projects
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, cancel_requested = 0, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusDetecting, StatusPending,
		StatusTranscribing, StatusQueued,
		timestampNow(),
		StatusDetecting,
		StatusTranscribing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck projects: %w", err)
	}
	return res.RowsAffected()
}
