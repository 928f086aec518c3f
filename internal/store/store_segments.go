package store

import (
	"context"
	"database/sql"
	"fmt"

	"transcriber/internal/segment"
	"transcriber/internal/services"
)

// Segments returns the stored segments of a project ordered by index.
// Audio slices and the transcribing flag are not persisted.
func (s *Store) Segments(ctx context.Context, projectID int64) ([]segment.Segment, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT start_sample, end_sample, start_seconds, end_seconds, transcription, transcription_error
         FROM segments WHERE project_id = ? ORDER BY seg_index`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []segment.Segment
	for rows.Next() {
		var (
			seg       segment.Segment
			text      sql.NullString
			errorText sql.NullString
		)
		if err := rows.Scan(&seg.StartSample, &seg.EndSample, &seg.StartSeconds, &seg.EndSeconds, &text, &errorText); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Transcription = pointerFromNull(text)
		seg.TranscriptionError = pointerFromNull(errorText)
		out = append(out, seg)
	}
	return out, rows.Err()
}

// ReplaceSegments swaps the whole segment collection of a project.
func (s *Store) ReplaceSegments(ctx context.Context, projectID int64, segments []segment.Segment) error {
	if err := segment.Validate(segments); err != nil {
		return services.Wrap(services.ErrValidation, "store", "replace segments", "", err)
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE project_id = ?`, projectID); err != nil {
			return err
		}
		if err := insertSegments(ctx, tx, projectID, segments); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE projects SET updated_at = ? WHERE id = ?`, timestampNow(), projectID)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace segments: %w", err)
	}
	return nil
}

// UpdateSegment stores the transcription outcome of one segment.
func (s *Store) UpdateSegment(ctx context.Context, projectID int64, index int, seg segment.Segment) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE segments SET transcription = ?, transcription_error = ?
         WHERE project_id = ? AND seg_index = ?`,
		nullablePointer(seg.Transcription),
		nullablePointer(seg.TranscriptionError),
		projectID,
		index,
	)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update segment",
			fmt.Sprintf("project %d segment %d", projectID, index), nil)
	}
	return nil
}

// SegmentCounts returns per-state segment counts for a project.
func (s *Store) SegmentCounts(ctx context.Context, projectID int64) (map[segment.State]int, error) {
	segs, err := s.Segments(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return segment.Counts(segs), nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, projectID int64, segments []segment.Segment) error {
	if len(segments) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO segments (project_id, seg_index, start_sample, end_sample, start_seconds, end_seconds,
             transcription, transcription_error)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, seg := range segments {
		if _, err := stmt.ExecContext(ctx,
			projectID,
			i,
			seg.StartSample,
			seg.EndSample,
			seg.StartSeconds,
			seg.EndSeconds,
			nullablePointer(seg.Transcription),
			nullablePointer(seg.TranscriptionError),
		); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}
	return nil
}
