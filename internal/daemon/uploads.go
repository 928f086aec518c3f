package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"transcriber/internal/transfer"
)

type beginUploadRequest struct {
	Filename string `json:"filename"`
}

func (s *apiServer) handleUploadBegin(w http.ResponseWriter, r *http.Request) {
	var req beginUploadRequest
	if r.ContentLength != 0 && !s.decodeJSON(w, r, &req) {
		return
	}
	id, err := s.daemon.receiver.Begin(req.Filename)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, transfer.BeginResponse{SessionID: id})
}

func (s *apiServer) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	// A chunk that cannot be accepted ends the session; the client restarts
	// from the first chunk.
	reject := func(status int, message string) {
		_ = s.daemon.receiver.Abort(sessionID)
		s.writeError(w, status, message)
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		reject(http.StatusBadRequest, "invalid chunk index")
		return
	}
	query := r.URL.Query()
	total, err := strconv.Atoi(query.Get("total"))
	if err != nil {
		reject(http.StatusBadRequest, "total is required")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(s.maxChunk)))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			reject(http.StatusRequestEntityTooLarge, fmt.Sprintf("chunk exceeds %d bytes", s.maxChunk))
			return
		}
		reject(http.StatusBadRequest, fmt.Sprintf("read chunk: %v", err))
		return
	}

	path, done, err := s.daemon.receiver.Receive(r.Context(), sessionID, index, total, data, query.Get("filename"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transfer.ChunkResponse{Done: done, Path: path})
}

func (s *apiServer) handleUploadAbort(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.receiver.Abort(r.PathValue("session")); err != nil {
		s.writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
