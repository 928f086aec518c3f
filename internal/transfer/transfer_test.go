package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"transcriber/internal/progress"
	"transcriber/internal/services"
	"transcriber/internal/transfer"
)

func TestProgress(t *testing.T) {
	cases := []struct {
		sent, total int
		want        float64
	}{
		{0, 4, 0},
		{2, 4, 0.45},
		{4, 4, 0.9},
		{5, 4, 0.9},
		{1, 0, 0},
	}
	for _, tc := range cases {
		if got := transfer.Progress(tc.sent, tc.total, transfer.UploadFraction); got != tc.want {
			t.Fatalf("Progress(%d,%d) = %v, want %v", tc.sent, tc.total, got, tc.want)
		}
	}
	if transfer.ChunkCount(2*transfer.ChunkSize+1, transfer.ChunkSize) != 3 {
		t.Fatal("unexpected chunk count")
	}
}

func TestReceiverAssemblesOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	r := transfer.NewReceiver(dir, nil)
	ctx := context.Background()
	id, err := r.Begin("talk.mp3")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if _, done, err := r.Receive(ctx, id, 1, 3, []byte("BB"), "talk.mp3"); err != nil || done {
		t.Fatalf("chunk 1: done=%v err=%v", done, err)
	}
	if _, done, err := r.Receive(ctx, id, 0, 3, []byte("AA"), "talk.mp3"); err != nil || done {
		t.Fatalf("chunk 0: done=%v err=%v", done, err)
	}
	path, done, err := r.Receive(ctx, id, 2, 3, []byte("C"), "talk.mp3")
	if err != nil || !done {
		t.Fatalf("final chunk: done=%v err=%v", done, err)
	}
	if filepath.Ext(path) != ".mp3" || filepath.Dir(path) != dir {
		t.Fatalf("unexpected assembled path %q", path)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "AABBC" {
		t.Fatalf("unexpected content %q", got)
	}
	if r.Active() != 0 {
		t.Fatal("session should be released after assembly")
	}
	if _, err := os.Stat(filepath.Join(dir, id)); !os.IsNotExist(err) {
		t.Fatal("session staging dir should be removed")
	}
}

func TestReceiverFinalChunkWithGapAborts(t *testing.T) {
	r := transfer.NewReceiver(t.TempDir(), nil)
	ctx := context.Background()
	id, _ := r.Begin("a.wav")
	if _, _, err := r.Receive(ctx, id, 0, 3, []byte("x"), "a.wav"); err != nil {
		t.Fatal(err)
	}
	_, done, err := r.Receive(ctx, id, 2, 3, []byte("z"), "a.wav")
	if done || !errors.Is(err, transfer.ErrMissingChunks) || !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected missing chunk transfer error, got done=%v err=%v", done, err)
	}
	if !strings.Contains(err.Error(), "1") {
		t.Fatalf("error should name missing index: %v", err)
	}
	if r.Active() != 0 {
		t.Fatal("failed session must be aborted")
	}
}

func TestReceiverRejectsInconsistentChunks(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name  string
		steps func(r *transfer.Receiver, id string) error
		want  error
	}{
		{"duplicate", func(r *transfer.Receiver, id string) error {
			_, _, _ = r.Receive(ctx, id, 0, 3, []byte("a"), "a.wav")
			_, _, err := r.Receive(ctx, id, 0, 3, []byte("a"), "a.wav")
			return err
		}, transfer.ErrDuplicateChunk},
		{"total changed", func(r *transfer.Receiver, id string) error {
			_, _, _ = r.Receive(ctx, id, 0, 3, []byte("a"), "a.wav")
			_, _, err := r.Receive(ctx, id, 1, 4, []byte("b"), "a.wav")
			return err
		}, transfer.ErrTotalMismatch},
		{"out of range", func(r *transfer.Receiver, id string) error {
			_, _, err := r.Receive(ctx, id, 3, 3, []byte("a"), "a.wav")
			return err
		}, transfer.ErrChunkIndex},
		{"zero total", func(r *transfer.Receiver, id string) error {
			_, _, err := r.Receive(ctx, id, 0, 0, []byte("a"), "a.wav")
			return err
		}, transfer.ErrChunkIndex},
		{"too large", func(r *transfer.Receiver, id string) error {
			_, _, err := r.Receive(ctx, id, 0, 1, []byte("abcdef"), "a.wav")
			return err
		}, transfer.ErrChunkTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := transfer.NewReceiver(t.TempDir(), nil, transfer.WithMaxChunk(4))
			id, _ := r.Begin("a.wav")
			if err := tc.steps(r, id); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if r.Active() != 0 {
				t.Fatal("session should be aborted")
			}
		})
	}
}

func TestReceiverImplicitSession(t *testing.T) {
	r := transfer.NewReceiver(t.TempDir(), nil)
	id := uuid.NewString()
	path, done, err := r.Receive(context.Background(), id, 0, 1, []byte("data"), "note")
	if err != nil || !done {
		t.Fatalf("implicit single-chunk upload failed: %v", err)
	}
	if filepath.Ext(path) != ".wav" {
		t.Fatalf("expected wav default extension, got %q", path)
	}
	if _, _, err := r.Receive(context.Background(), "not-a-uuid", 0, 1, []byte("x"), "a.wav"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for bad id, got %v", err)
	}
}

func TestReceiverSweepAndAbort(t *testing.T) {
	now := time.Unix(1000, 0)
	r := transfer.NewReceiver(t.TempDir(), nil,
		transfer.WithSessionTTL(time.Minute),
		transfer.WithClock(func() time.Time { return now }),
	)
	stale, _ := r.Begin("a.wav")
	now = now.Add(2 * time.Minute)
	fresh, _ := r.Begin("b.wav")
	if removed := r.Sweep(now); removed != 1 {
		t.Fatalf("expected one stale session removed, got %d", removed)
	}
	if err := r.Abort(stale); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for swept session, got %v", err)
	}
	if err := r.Abort(fresh); err != nil {
		t.Fatalf("Abort failed: %v", err)
	}
	if r.Active() != 0 {
		t.Fatal("expected no sessions")
	}
}

func TestUploaderEndToEnd(t *testing.T) {
	src := filepath.Join(t.TempDir(), "lecture.flac")
	payload := bytes.Repeat([]byte("0123456789"), 25)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatal(err)
	}
	r := transfer.NewReceiver(t.TempDir(), nil, transfer.WithMaxChunk(64))
	u := transfer.NewUploader(64, 0)

	var events []progress.Event
	path, err := u.Upload(context.Background(), src, transfer.LocalSender{Receiver: r}, func(ev progress.Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, payload) {
		t.Fatal("assembled file differs from source")
	}
	if filepath.Ext(path) != ".flac" {
		t.Fatalf("unexpected extension %q", path)
	}
	last := events[len(events)-1]
	if last.Percent != 90 || last.Details != "4/4 chunks" {
		t.Fatalf("unexpected final progress %+v", last)
	}
}

type failingSender struct {
	transfer.LocalSender
	failAt  int
	sent    []int
	aborted bool
}

func (f *failingSender) Send(ctx context.Context, id string, index, total int, data []byte, name string) (string, bool, error) {
	f.sent = append(f.sent, index)
	if index == f.failAt {
		return "", false, errors.New("connection reset")
	}
	return f.LocalSender.Send(ctx, id, index, total, data, name)
}

func (f *failingSender) Abort(ctx context.Context, id string) error {
	f.aborted = true
	return f.LocalSender.Abort(ctx, id)
}

func TestUploaderFailsFast(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.wav")
	if err := os.WriteFile(src, bytes.Repeat([]byte("x"), 50), 0o644); err != nil {
		t.Fatal(err)
	}
	sender := &failingSender{LocalSender: transfer.LocalSender{Receiver: transfer.NewReceiver(t.TempDir(), nil)}, failAt: 1}
	_, err := transfer.NewUploader(10, 0).Upload(context.Background(), src, sender, nil)
	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected transfer error, got %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected upload to stop after failing chunk, sent %v", sender.sent)
	}
	if !sender.aborted {
		t.Fatal("expected remote session abort")
	}
}

func TestUploaderRejectsEmptyFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "empty.wav")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := transfer.NewReceiver(t.TempDir(), nil)
	if _, err := transfer.NewUploader(0, 0).Upload(context.Background(), src, transfer.LocalSender{Receiver: r}, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
