package api

import (
	"context"

	"transcriber/internal/segment"
	"transcriber/internal/store"
)

// ProjectReader abstracts the store queries needed for API responses.
type ProjectReader interface {
	List(ctx context.Context, statuses ...store.Status) ([]*store.Project, error)
	Stats(ctx context.Context) (map[store.Status]int, error)
	GetByID(ctx context.Context, id int64) (*store.Project, error)
	Segments(ctx context.Context, projectID int64) ([]segment.Segment, error)
}

// ProjectService exposes read-only project operations returning API DTOs.
type ProjectService struct {
	store   ProjectReader
	logPath func(*store.Project) string
}

// NewProjectService constructs a ProjectService around the provided reader.
// logPath, when set, fills Project.LogPath on detailed responses.
func NewProjectService(reader ProjectReader, logPath func(*store.Project) string) *ProjectService {
	if reader == nil {
		return nil
	}
	return &ProjectService{store: reader, logPath: logPath}
}

// List returns projects filtered by status.
func (s *ProjectService) List(ctx context.Context, statuses ...store.Status) ([]Project, error) {
	if s == nil {
		return nil, nil
	}
	projects, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromProjects(projects), nil
}

// Stats returns project counts keyed by status string.
func (s *ProjectService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeProjectStats(stats), nil
}

// Describe fetches a project with its segments. A missing project yields nil.
func (s *ProjectService) Describe(ctx context.Context, id int64) (*ProjectResponse, error) {
	if s == nil {
		return nil, nil
	}
	p, err := s.store.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	segs, err := s.store.Segments(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := FromProject(p)
	dto.SegmentCounts = CountSegments(segs)
	if s.logPath != nil {
		dto.LogPath = s.logPath(p)
	}
	return &ProjectResponse{Project: dto, Segments: FromSegments(segs)}, nil
}
