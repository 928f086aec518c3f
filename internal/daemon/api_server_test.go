package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transcriber/internal/api"
	"transcriber/internal/store"
	"transcriber/internal/testsupport"
	"transcriber/internal/transfer"
)

func TestAPIRequiresBearerToken(t *testing.T) {
	h := newHarness(t, testsupport.WithAPIToken("s3cret"))

	resp, err := http.Get(h.server.URL + "/api/projects")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var list api.ProjectListResponse
	if resp := h.do(t, http.MethodGet, "/api/projects", nil, &list); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
	if list.Projects == nil || len(list.Projects) != 0 {
		t.Fatalf("expected empty project list, got %+v", list.Projects)
	}
}

func TestUploadThenCreateProject(t *testing.T) {
	h := newHarness(t)

	var begin transfer.BeginResponse
	resp := h.do(t, http.MethodPost, "/api/uploads", mustJSON(t, map[string]string{"filename": "talk.wav"}), &begin)
	if resp.StatusCode != http.StatusCreated || begin.SessionID == "" {
		t.Fatalf("begin upload: %d %+v", resp.StatusCode, begin)
	}

	chunks := [][]byte{[]byte("RIFF----"), []byte("WAVEdata")}
	var last transfer.ChunkResponse
	for i, chunk := range chunks {
		path := fmt.Sprintf("/api/uploads/%s/chunks/%d?total=%d&filename=talk.wav", begin.SessionID, i, len(chunks))
		resp := h.do(t, http.MethodPut, path, chunk, &last)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("chunk %d: status %d", i, resp.StatusCode)
		}
		if i == 0 && last.Done {
			t.Fatal("first chunk should not finish the upload")
		}
	}
	if !last.Done || last.Path == "" {
		t.Fatalf("expected assembled path, got %+v", last)
	}
	data, err := os.ReadFile(last.Path)
	if err != nil {
		t.Fatalf("read assembled: %v", err)
	}
	if string(data) != "RIFF----WAVEdata" {
		t.Fatalf("unexpected assembled payload %q", data)
	}

	var created api.ProjectResponse
	req := api.CreateProjectRequest{Name: "Talk", Path: last.Path, SourceFilename: "talk.wav"}
	resp = h.do(t, http.MethodPost, "/api/projects", mustJSON(t, req), &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: status %d", resp.StatusCode)
	}
	if created.Project.Status != "pending" || created.Project.SourceFilename != "talk.wav" {
		t.Fatalf("unexpected project %+v", created.Project)
	}
	if !strings.HasSuffix(created.Project.LogPath, ".log") {
		t.Fatalf("expected project log path, got %q", created.Project.LogPath)
	}

	var list api.ProjectListResponse
	h.do(t, http.MethodGet, "/api/projects?status=pending", nil, &list)
	if len(list.Projects) != 1 || list.Projects[0].ID != created.Project.ID {
		t.Fatalf("unexpected list %+v", list.Projects)
	}
}

func TestUploadRejectsOversizedChunk(t *testing.T) {
	h := newHarness(t)
	h.daemon.api.maxChunk = 4

	var begin transfer.BeginResponse
	h.do(t, http.MethodPost, "/api/uploads", nil, &begin)
	var errResp api.ErrorResponse
	path := fmt.Sprintf("/api/uploads/%s/chunks/0?total=1", begin.SessionID)
	resp := h.do(t, http.MethodPut, path, []byte("too large"), &errResp)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
	if h.daemon.receiver.Active() != 0 {
		t.Fatal("expected oversized upload session to be discarded")
	}
}

func TestUploadChunkErrors(t *testing.T) {
	h := newHarness(t)

	var begin transfer.BeginResponse
	h.do(t, http.MethodPost, "/api/uploads", nil, &begin)
	resp := h.do(t, http.MethodPut, fmt.Sprintf("/api/uploads/%s/chunks/3?total=2", begin.SessionID), []byte("x"), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range chunk, got %d", resp.StatusCode)
	}
	resp = h.do(t, http.MethodPut, fmt.Sprintf("/api/uploads/%s/chunks/0", begin.SessionID), []byte("x"), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without total, got %d", resp.StatusCode)
	}
	resp = h.do(t, http.MethodDelete, "/api/uploads/"+begin.SessionID, nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for session discarded by the failed chunk, got %d", resp.StatusCode)
	}
}

func TestUploadMalformedChunkDiscardsSession(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"bad index", "/api/uploads/%s/chunks/x?total=2"},
		{"bad total", "/api/uploads/%s/chunks/0?total=two"},
		{"missing total", "/api/uploads/%s/chunks/0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			var begin transfer.BeginResponse
			h.do(t, http.MethodPost, "/api/uploads", nil, &begin)
			resp := h.do(t, http.MethodPut, fmt.Sprintf(tc.path, begin.SessionID), []byte("x"), nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			if h.daemon.receiver.Active() != 0 {
				t.Fatal("expected the session to be discarded")
			}
		})
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestUploadBodyReadErrorDiscardsSession(t *testing.T) {
	h := newHarness(t)
	var begin transfer.BeginResponse
	h.do(t, http.MethodPost, "/api/uploads", nil, &begin)

	req := httptest.NewRequest(http.MethodPut, "/api/uploads/"+begin.SessionID+"/chunks/0?total=1", failingBody{})
	req.SetPathValue("session", begin.SessionID)
	req.SetPathValue("index", "0")
	rec := httptest.NewRecorder()
	h.daemon.api.handleUploadChunk(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if h.daemon.receiver.Active() != 0 {
		t.Fatal("expected the session to be discarded after a read error")
	}
}

func TestCreateProjectValidation(t *testing.T) {
	h := newHarness(t)
	textFile := filepath.Join(h.cfg.Paths.UploadDir, "notes.txt")
	testsupport.WriteFile(t, textFile, 10)

	cases := []struct {
		name string
		req  api.CreateProjectRequest
		want int
	}{
		{"missing name", api.CreateProjectRequest{Path: textFile}, http.StatusBadRequest},
		{"missing file", api.CreateProjectRequest{Name: "x", Path: filepath.Join(h.cfg.Paths.UploadDir, "gone.wav")}, http.StatusNotFound},
		{"unsupported", api.CreateProjectRequest{Name: "x", Path: textFile}, http.StatusBadRequest},
		{"directory", api.CreateProjectRequest{Name: "x", Path: h.cfg.Paths.UploadDir}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := h.do(t, http.MethodPost, "/api/projects", mustJSON(t, tc.req), nil)
			if resp.StatusCode != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}

	resp := h.do(t, http.MethodPost, "/api/projects", []byte(`{"name":"x","bogus":1}`), nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestTranscribeCancelAndExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	pending := testsupport.NewProject(t, h.store, "fresh", "/tmp/fresh.wav")
	resp := h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/transcribe", pending.ID), nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for pending project, got %d", resp.StatusCode)
	}

	p, err := h.store.NewSegmentedProject(ctx, "meeting", "meeting.wav", "/tmp/meeting.wav",
		testsupport.Segments([2]float64{0, 1.5}, [2]float64{2, 3.25}))
	if err != nil {
		t.Fatalf("NewSegmentedProject: %v", err)
	}
	var queued api.ProjectResponse
	resp = h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/transcribe", p.ID), nil, &queued)
	if resp.StatusCode != http.StatusAccepted || queued.Project.Status != "queued" {
		t.Fatalf("transcribe: %d %+v", resp.StatusCode, queued.Project)
	}

	var canceled api.ProjectResponse
	h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/cancel", p.ID), nil, &canceled)
	if canceled.Project.Status != "canceled" || canceled.Project.ErrorMessage != store.UserCancelReason {
		t.Fatalf("unexpected canceled project %+v", canceled.Project)
	}

	segs, err := h.store.Segments(ctx, p.ID)
	if err != nil {
		t.Fatalf("Segments: %v", err)
	}
	for i, text := range []string{"Hello there.", "General Kenobi."} {
		seg := segs[i]
		seg.Transcription = &text
		if err := h.store.UpdateSegment(ctx, p.ID, i, seg); err != nil {
			t.Fatalf("UpdateSegment: %v", err)
		}
	}

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/export?format=srt", p.ID), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/x-subrip") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="meeting.srt"` {
		t.Fatalf("unexpected content disposition %q", cd)
	}
	body, _ := io.ReadAll(resp.Body)
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello there.\n\n2\n00:00:02,000 --> 00:00:03,250\nGeneral Kenobi.\n"
	if !strings.HasPrefix(string(body), want) {
		t.Fatalf("unexpected srt:\n%s", body)
	}

	resp = h.do(t, http.MethodGet, fmt.Sprintf("/api/projects/%d/export?format=docx", p.ID), nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", resp.StatusCode)
	}

	var requeued api.ProjectResponse
	h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/transcribe", p.ID), nil, &requeued)
	if requeued.Project.Status != "queued" || requeued.Project.SegmentCounts.Done != 2 {
		t.Fatalf("requeue should keep finished segments: %+v", requeued.Project)
	}
}

func TestTranscribeCanceledProjectWithoutSegmentsRedetects(t *testing.T) {
	h := newHarness(t)
	p := testsupport.NewProject(t, h.store, "early", "/tmp/early.wav")
	if _, err := h.store.RequestCancel(context.Background(), p.ID); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	var resp api.ProjectResponse
	h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/transcribe", p.ID), nil, &resp)
	if resp.Project.Status != "pending" {
		t.Fatalf("expected pending, got %q", resp.Project.Status)
	}
}

func TestRetrySegment(t *testing.T) {
	h := newHarness(t)
	p, err := h.store.NewSegmentedProject(context.Background(), "call", "call.wav", "/tmp/call.wav",
		testsupport.Segments([2]float64{0, 1}))
	if err != nil {
		t.Fatalf("NewSegmentedProject: %v", err)
	}

	var out api.SegmentResponse
	resp := h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/segments/0/retry", p.ID), nil, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry: status %d", resp.StatusCode)
	}
	if out.Segment.Transcription == nil || *out.Segment.Transcription != "retried" || out.Segment.State != "done" {
		t.Fatalf("unexpected segment %+v", out.Segment)
	}
	if len(h.retrier.calls) != 1 || h.retrier.calls[0] != 0 {
		t.Fatalf("unexpected retrier calls %v", h.retrier.calls)
	}

	resp = h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/segments/x/retry", p.ID), nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad index, got %d", resp.StatusCode)
	}
	pending := testsupport.NewProject(t, h.store, "pending", "/tmp/p.wav")
	resp = h.do(t, http.MethodPost, fmt.Sprintf("/api/projects/%d/segments/0/retry", pending.ID), nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before detection, got %d", resp.StatusCode)
	}
}

func TestProjectNotFoundAndRemove(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/projects/999", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp = h.do(t, http.MethodGet, "/api/projects/abc", nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.StatusCode)
	}

	source := filepath.Join(h.cfg.Paths.UploadDir, "owned.wav")
	testsupport.WriteFile(t, source, 16)
	p := testsupport.NewProject(t, h.store, "owned", source)
	resp = h.do(t, http.MethodDelete, fmt.Sprintf("/api/projects/%d", p.ID), nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatalf("expected staged source removed, stat err=%v", err)
	}
	if got, _ := h.store.GetByID(context.Background(), p.ID); got != nil {
		t.Fatal("expected project removed")
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newHarness(t)
	var status api.DaemonStatus
	resp := h.do(t, http.MethodGet, "/api/status", nil, &status)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if status.DatabasePath != h.cfg.DatabasePath() || status.LockFilePath != h.cfg.LockPath() {
		t.Fatalf("unexpected paths %+v", status)
	}
	if len(status.Dependencies) != 2 || len(status.Checks) == 0 {
		t.Fatalf("expected dependency and preflight results, got %+v", status)
	}
	if len(status.Workflow.StageHealth) != 2 || status.Workflow.ProjectStats == nil {
		t.Fatalf("unexpected workflow status %+v", status.Workflow)
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{transfer.ErrChunkTooLarge, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("wrap: %w", store.ErrInvalidTransition), http.StatusConflict},
		{transfer.ErrUnknownSession, http.StatusNotFound},
		{transfer.ErrMissingChunks, http.StatusBadRequest},
		{errRetryUnavailable, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusForError(tc.err); got != tc.want {
			t.Errorf("statusForError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
