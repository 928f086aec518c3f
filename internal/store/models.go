package store

import (
	"strings"
	"time"
)

// Status is the lifecycle position of a project.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDetecting    Status = "detecting"
	StatusSegmented    Status = "segmented"
	StatusQueued       Status = "queued"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCanceled     Status = "canceled"
)

// UserCancelReason is recorded when a user cancels a project.
const UserCancelReason = "Canceled by user"

var allStatuses = []Status{
	StatusPending,
	StatusDetecting,
	StatusSegmented,
	StatusQueued,
	StatusTranscribing,
	StatusCompleted,
	StatusFailed,
	StatusCanceled,
}

var processingStatuses = map[Status]struct{}{
	StatusDetecting:    {},
	StatusTranscribing: {},
}

// transitions lists every legal move. Processing states roll back to the
// state that feeds them when the daemon restarts.
var transitions = map[Status][]Status{
	StatusPending:      {StatusDetecting, StatusCanceled},
	StatusDetecting:    {StatusSegmented, StatusFailed, StatusCanceled, StatusPending},
	StatusSegmented:    {StatusQueued},
	StatusQueued:       {StatusTranscribing, StatusCanceled},
	StatusTranscribing: {StatusCompleted, StatusFailed, StatusCanceled, StatusQueued},
	StatusCompleted:    {StatusQueued},
	StatusFailed:       {StatusQueued, StatusPending},
	StatusCanceled:     {StatusQueued, StatusPending},
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts text into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// CanTransition reports whether a project may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsProcessing reports whether the status represents an active step.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// IsTerminal reports whether no work remains for the status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Project is one persisted project row.
type Project struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	SourceFilename  string    `json:"source_filename,omitempty"`
	SourcePath      string    `json:"source_path,omitempty"`
	Status          Status    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	ProgressStage   string    `json:"progress_stage,omitempty"`
	ProgressPercent float64   `json:"progress_percent"`
	ProgressMessage string    `json:"progress_message,omitempty"`
	CancelRequested bool      `json:"cancel_requested,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Summary aggregates project counts for status output.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
