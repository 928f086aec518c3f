package services

import "context"

type contextKey string

const (
	projectIDKey    contextKey = "project_id"
	segmentIndexKey contextKey = "segment_index"
	sessionIDKey    contextKey = "session_id"
	stageKey        contextKey = "stage"
	requestIDKey    contextKey = "request_id"
)

// WithProjectID annotates context with the stored project identifier.
func WithProjectID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, projectIDKey, id)
}

// ProjectIDFromContext extracts the project identifier if present.
func ProjectIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(projectIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithSegmentIndex annotates context with the zero-based segment index.
func WithSegmentIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, segmentIndexKey, index)
}

// SegmentIndexFromContext returns the segment index if present.
func SegmentIndexFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(segmentIndexKey).(int)
	return v, ok
}

// WithSessionID annotates context with an upload session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the upload session identifier if present.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
