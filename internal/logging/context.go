package logging

import (
	"context"
	"log/slog"

	"transcriber/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldProjectID is the standardized key for stored project identifiers.
	FieldProjectID = "project_id"
	// FieldSegmentIndex is the standardized key for zero-based segment indexes.
	FieldSegmentIndex = "segment_index"
	// FieldSessionID is the standardized key for upload session identifiers.
	FieldSessionID = "session_id"
	// FieldStage is the standardized key for pipeline stage names.
	FieldStage = "stage"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressStep and FieldProgressPercent describe progress events.
	FieldProgressStep    = "progress_step"
	FieldProgressPercent = "progress_percent"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if id, ok := services.ProjectIDFromContext(ctx); ok {
		fields = append(fields, ProjectID(id))
	}
	if idx, ok := services.SegmentIndexFromContext(ctx); ok {
		fields = append(fields, SegmentIndex(idx))
	}
	if sid, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, SessionID(sid))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, Stage(stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
