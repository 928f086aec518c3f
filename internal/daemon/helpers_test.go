package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"transcriber/internal/config"
	"transcriber/internal/logging"
	"transcriber/internal/media/ffprobe"
	"transcriber/internal/progress"
	"transcriber/internal/segment"
	"transcriber/internal/store"
	"transcriber/internal/testsupport"
	"transcriber/internal/transfer"
	"transcriber/internal/workflow"
)

type noopStage struct{ name string }

func (noopStage) Execute(context.Context, *store.Project, *slog.Logger, progress.Func) error {
	return nil
}

func (s noopStage) HealthCheck(context.Context) workflow.StageHealth {
	return workflow.HealthyStage(s.name)
}

type stubRetrier struct {
	text  string
	calls []int
}

func (r *stubRetrier) Retry(_ context.Context, _ *store.Project, index int) (segment.Segment, error) {
	r.calls = append(r.calls, index)
	seg := segment.New(0, 1, segment.ReferenceSampleRate)
	text := r.text
	seg.Transcription = &text
	return seg, nil
}

type harness struct {
	cfg     *config.Config
	store   *store.Store
	daemon  *Daemon
	retrier *stubRetrier
	server  *httptest.Server
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	receiver := transfer.NewReceiver(cfg.Paths.UploadDir, logger, transfer.WithMaxChunk(cfg.Upload.ChunkSize))
	mgr := workflow.NewManager(cfg, st, logger, workflow.WithSweeper(receiver))
	mgr.ConfigureStages(workflow.StageSet{
		Detection:     noopStage{name: "detection"},
		Transcription: noopStage{name: "transcription"},
	})
	retrier := &stubRetrier{text: "retried"}
	d, err := New(cfg, st, logger, mgr, receiver, retrier)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	original := probeSource
	probeSource = func(context.Context, string, string) (ffprobe.Result, error) {
		return ffprobe.Result{Format: ffprobe.Format{Duration: "12.5"}}, nil
	}
	t.Cleanup(func() { probeSource = original })

	server := httptest.NewServer(d.api.handler())
	t.Cleanup(server.Close)
	return &harness{cfg: cfg, store: st, daemon: d, retrier: retrier, server: server}
}

func (h *harness) do(t *testing.T, method, path string, body []byte, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token := h.cfg.Paths.APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s (%d): %v: %s", method, path, resp.StatusCode, err, raw)
		}
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return resp
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}
