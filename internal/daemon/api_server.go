package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"transcriber/internal/api"
	"transcriber/internal/config"
	"transcriber/internal/logging"
	"transcriber/internal/services"
	"transcriber/internal/store"
	"transcriber/internal/transfer"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 64 << 10

type apiServer struct {
	bind     string
	token    string
	maxChunk int
	logger   *slog.Logger
	daemon   *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	maxChunk := cfg.Upload.ChunkSize
	if maxChunk <= 0 {
		maxChunk = transfer.ChunkSize
	}
	srv := &apiServer{
		bind:     strings.TrimSpace(cfg.Paths.APIBind),
		token:    strings.TrimSpace(cfg.Paths.APIToken),
		maxChunk: maxChunk,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		daemon:   d,
	}
	srv.server = &http.Server{
		Handler:           srv.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("POST /api/uploads", s.handleUploadBegin)
	mux.HandleFunc("PUT /api/uploads/{session}/chunks/{index}", s.handleUploadChunk)
	mux.HandleFunc("DELETE /api/uploads/{session}", s.handleUploadAbort)

	mux.HandleFunc("GET /api/projects", s.handleProjectList)
	mux.HandleFunc("POST /api/projects", s.handleProjectCreate)
	mux.HandleFunc("GET /api/projects/{id}", s.handleProjectGet)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleProjectRemove)
	mux.HandleFunc("POST /api/projects/{id}/transcribe", s.handleProjectTranscribe)
	mux.HandleFunc("POST /api/projects/{id}/cancel", s.handleProjectCancel)
	mux.HandleFunc("POST /api/projects/{id}/segments/{index}/retry", s.handleSegmentRetry)
	mux.HandleFunc("GET /api/projects/{id}/export", s.handleProjectExport)

	return authMiddleware(s.token, mux)
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled (empty bind address)")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		DatabasePath:   status.DatabasePath,
		LockFilePath:   status.LockFilePath,
		UploadSessions: status.UploadSessions,
		Workflow:       api.FromStatusSummary(status.Workflow),
		Dependencies:   api.FromDependencies(status.Dependencies),
		Checks:         api.FromChecks(status.Checks),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleProjectList(w http.ResponseWriter, r *http.Request) {
	var statuses []store.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := store.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}
	projects, err := s.daemon.projects.List(r.Context(), statuses...)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if projects == nil {
		projects = []api.Project{}
	}
	s.writeJSON(w, http.StatusOK, api.ProjectListResponse{Projects: projects})
}

func (s *apiServer) handleProjectCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	project, err := s.daemon.CreateProject(r.Context(), req.Name, req.Path, req.SourceFilename)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeProject(w, r, http.StatusCreated, project.ID)
}

func (s *apiServer) handleProjectGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	s.writeProject(w, r, http.StatusOK, id)
}

func (s *apiServer) handleProjectRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	if err := s.daemon.RemoveProject(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleProjectTranscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	if _, err := s.daemon.QueueTranscription(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeProject(w, r, http.StatusAccepted, id)
}

func (s *apiServer) handleProjectCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	if _, err := s.daemon.CancelProject(r.Context(), id); err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeProject(w, r, http.StatusAccepted, id)
}

func (s *apiServer) handleSegmentRetry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid segment index")
		return
	}
	seg, err := s.daemon.RetrySegment(r.Context(), id, index)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SegmentResponse{Segment: api.FromSegment(index, seg)})
}

func (s *apiServer) handleProjectExport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	formatName := r.URL.Query().Get("format")
	if strings.TrimSpace(formatName) == "" {
		formatName = "txt"
	}
	doc, err := s.daemon.Export(r.Context(), id, formatName)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.Body))
}

func (s *apiServer) writeProject(w http.ResponseWriter, r *http.Request, status int, id int64) {
	resp, err := s.daemon.projects.Describe(r.Context(), id)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	if resp == nil {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	s.writeJSON(w, status, resp)
}

func (s *apiServer) projectID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid project id")
		return 0, false
	}
	return id, true
}

func (s *apiServer) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("api request failed", logging.Error(err))
	}
	s.writeError(w, status, err.Error())
}

// statusForError maps the error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, transfer.ErrUnknownSession):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, transfer.ErrChunkTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, transfer.ErrChunkIndex),
		errors.Is(err, transfer.ErrDuplicateChunk),
		errors.Is(err, transfer.ErrTotalMismatch),
		errors.Is(err, transfer.ErrMissingChunks):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}
