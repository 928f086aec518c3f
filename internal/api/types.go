package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Project describes a stored project in a transport-friendly format.
type Project struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	SourceFilename string          `json:"sourceFilename,omitempty"`
	SourcePath     string          `json:"sourcePath,omitempty"`
	Status         string          `json:"status"`
	Progress       ProjectProgress `json:"progress"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CancelPending  bool            `json:"cancelPending,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
	SegmentCounts  *SegmentCounts  `json:"segmentCounts,omitempty"`
	LogPath        string          `json:"logPath,omitempty"`
}

// ProjectProgress captures stage progress information for a project.
type ProjectProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// SegmentCounts tallies segments by state.
type SegmentCounts struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Transcribing int `json:"transcribing"`
	Done         int `json:"done"`
	Failed       int `json:"failed"`
}

// Segment is one speech interval and its transcription outcome.
type Segment struct {
	Index         int     `json:"index"`
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	StartSample   int64   `json:"startSample"`
	EndSample     int64   `json:"endSample"`
	State         string  `json:"state"`
	Transcription *string `json:"transcription,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running       bool           `json:"running"`
	ActiveProject int64          `json:"activeProject,omitempty"`
	ProjectStats  map[string]int `json:"projectStats"`
	LastError     string         `json:"lastError,omitempty"`
	LastProject   *Project       `json:"lastProject,omitempty"`
	StageHealth   []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one preflight check outcome.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	DatabasePath   string             `json:"databasePath"`
	LockFilePath   string             `json:"lockFilePath"`
	UploadSessions int                `json:"uploadSessions"`
	Workflow       WorkflowStatus     `json:"workflow"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	Checks         []CheckResult      `json:"checks"`
}

// ProjectListResponse wraps a collection of projects.
type ProjectListResponse struct {
	Projects []Project `json:"projects"`
}

// ProjectResponse wraps a single project with its segments.
type ProjectResponse struct {
	Project  Project   `json:"project"`
	Segments []Segment `json:"segments"`
}

// SegmentResponse wraps a single segment after a retry.
type SegmentResponse struct {
	Segment Segment `json:"segment"`
}

// CreateProjectRequest creates a project from an assembled upload.
type CreateProjectRequest struct {
	Name string `json:"name"`
	// Path is the assembled upload location returned by the final chunk.
	Path string `json:"path"`
	// SourceFilename is the original client-side file name.
	SourceFilename string `json:"sourceFilename,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
