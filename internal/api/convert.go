package api

import (
	"slices"

	"transcriber/internal/deps"
	"transcriber/internal/preflight"
	"transcriber/internal/segment"
	"transcriber/internal/store"
	"transcriber/internal/workflow"
)

// FromProject converts a stored project to its API representation.
func FromProject(p *store.Project) Project {
	if p == nil {
		return Project{}
	}
	dto := Project{
		ID:             p.ID,
		Name:           p.Name,
		SourceFilename: p.SourceFilename,
		SourcePath:     p.SourcePath,
		Status:         string(p.Status),
		Progress: ProjectProgress{
			Stage:   p.ProgressStage,
			Percent: p.ProgressPercent,
			Message: p.ProgressMessage,
		},
		ErrorMessage:  p.ErrorMessage,
		CancelPending: p.CancelRequested,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !p.UpdatedAt.IsZero() {
		dto.UpdatedAt = p.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromProjects converts a slice of stored projects.
func FromProjects(projects []*store.Project) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p == nil {
			continue
		}
		out = append(out, FromProject(p))
	}
	return out
}

// FromSegment converts a segment at index.
func FromSegment(index int, seg segment.Segment) Segment {
	dto := Segment{
		Index:       index,
		Start:       seg.StartSeconds,
		End:         seg.EndSeconds,
		StartSample: seg.StartSample,
		EndSample:   seg.EndSample,
		State:       string(seg.State()),
		Error:       seg.Error(),
	}
	if seg.Transcription != nil {
		text := *seg.Transcription
		dto.Transcription = &text
	}
	return dto
}

// FromSegments converts a segment collection keeping collection order.
func FromSegments(segs []segment.Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, seg := range segs {
		out[i] = FromSegment(i, seg)
	}
	return out
}

// ToSegments rebuilds domain segments from their API form.
func ToSegments(dtos []Segment) []segment.Segment {
	out := make([]segment.Segment, len(dtos))
	for i, dto := range dtos {
		seg := segment.Segment{
			StartSample:  dto.StartSample,
			EndSample:    dto.EndSample,
			StartSeconds: dto.Start,
			EndSeconds:   dto.End,
		}
		if dto.Transcription != nil {
			text := *dto.Transcription
			seg.Transcription = &text
		}
		if dto.Error != "" {
			msg := dto.Error
			seg.TranscriptionError = &msg
		}
		out[i] = seg
	}
	return out
}

// CountSegments tallies segment states.
func CountSegments(segs []segment.Segment) *SegmentCounts {
	counts := segment.Counts(segs)
	return &SegmentCounts{
		Total:        len(segs),
		Pending:      counts[segment.StatePending],
		Transcribing: counts[segment.StateTranscribing],
		Done:         counts[segment.StateDone],
		Failed:       counts[segment.StateFailed],
	}
}

// MergeProjectStats converts store stats into a status-keyed map that always
// lists every status.
func MergeProjectStats(stats map[store.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range store.AllStatuses() {
		out[string(status)] = stats[status]
	}
	return out
}

// FromStatusSummary converts workflow diagnostics into the API representation.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	dto := WorkflowStatus{
		Running:       summary.Running,
		ActiveProject: summary.ActiveProject,
		ProjectStats:  MergeProjectStats(summary.ProjectStats),
		LastError:     summary.LastError,
	}
	if summary.LastProject != nil {
		p := FromProject(summary.LastProject)
		dto.LastProject = &p
	}
	for _, h := range summary.StageHealth {
		dto.StageHealth = append(dto.StageHealth, StageHealth{Name: h.Name, Ready: h.Ready, Detail: h.Detail})
	}
	slices.SortFunc(dto.StageHealth, func(a, b StageHealth) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return dto
}

// FromDependencies converts binary checks into the API representation.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, len(statuses))
	for i, dep := range statuses {
		out[i] = DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return out
}

// FromChecks converts preflight results into the API representation.
func FromChecks(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}
