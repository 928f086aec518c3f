package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Pipeline failure taxonomy. Extraction and transcription failures are
// recorded on the affected segment; the rest propagate to the caller.
var (
	ErrTransfer      = errors.New("transfer error")
	ErrDetection     = errors.New("detection error")
	ErrExtraction    = errors.New("extraction error")
	ErrTranscription = errors.New("transcription error")
	ErrImportParse   = errors.New("import parse error")
	ErrSerialization = errors.New("serialization error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SegmentLocal reports whether err belongs on a single segment rather than
// aborting the surrounding operation.
func SegmentLocal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrExtraction) || errors.Is(err, ErrTranscription)
}

// Retryable reports whether an operation that failed with err may be retried
// without user intervention.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return false
	case errors.Is(err, ErrSerialization), errors.Is(err, ErrImportParse):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
