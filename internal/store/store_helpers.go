package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const projectColumns = `id, name, source_filename, source_path, status, error_message,
    progress_stage, progress_percent, progress_message, cancel_requested,
    created_at, updated_at`

func scanProject(scanner interface{ Scan(dest ...any) error }) (*Project, error) {
	var (
		p               Project
		sourceFilename  sql.NullString
		sourcePath      sql.NullString
		errorMessage    sql.NullString
		progressStage   sql.NullString
		progressMessage sql.NullString
		cancelRequested int
		createdAt       string
		updatedAt       string
	)
	if err := scanner.Scan(
		&p.ID,
		&p.Name,
		&sourceFilename,
		&sourcePath,
		&p.Status,
		&errorMessage,
		&progressStage,
		&p.ProgressPercent,
		&progressMessage,
		&cancelRequested,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	p.SourceFilename = sourceFilename.String
	p.SourcePath = sourcePath.String
	p.ErrorMessage = errorMessage.String
	p.ProgressStage = progressStage.String
	p.ProgressMessage = progressMessage.String
	p.CancelRequested = cancelRequested != 0

	var err error
	if p.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &p, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullablePointer(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func pointerFromNull(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func timestampNow() string {
	return timestamp(time.Now())
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
