package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"transcriber/internal/progress"
	"transcriber/internal/services"
)

// ChunkSender is the client view of an upload endpoint.
type ChunkSender interface {
	Begin(ctx context.Context, filename string) (string, error)
	Send(ctx context.Context, sessionID string, index, total int, data []byte, filename string) (path string, done bool, err error)
	Abort(ctx context.Context, sessionID string) error
}

// Uploader splits files into chunks and sends them in order.
type Uploader struct {
	ChunkSize int
	Fraction  float64
}

// NewUploader returns an Uploader; zero values take the reference settings.
func NewUploader(chunkSize int, fraction float64) *Uploader {
	if chunkSize <= 0 {
		chunkSize = ChunkSize
	}
	if fraction <= 0 || fraction > 1 {
		fraction = UploadFraction
	}
	return &Uploader{ChunkSize: chunkSize, Fraction: fraction}
}

// Upload sends the file at path and returns where the receiver assembled it.
// The first failing chunk stops the upload and aborts the remote session.
func (u *Uploader) Upload(ctx context.Context, path string, sender ChunkSender, report progress.Func) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrTransfer, "upload", "open", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", services.Wrap(services.ErrTransfer, "upload", "stat", path, err)
	}
	total := ChunkCount(info.Size(), u.ChunkSize)
	if total == 0 {
		return "", services.Wrap(services.ErrTransfer, "upload", "split", "file is empty", services.ErrValidation)
	}

	filename := filepath.Base(path)
	sessionID, err := sender.Begin(ctx, filename)
	if err != nil {
		return "", services.Wrap(services.ErrTransfer, "upload", "begin", filename, err)
	}
	ctx = services.WithSessionID(ctx, sessionID)

	abort := func(operation string, cause error) (string, error) {
		_ = sender.Abort(context.WithoutCancel(ctx), sessionID)
		return "", services.Wrap(services.ErrTransfer, "upload", operation, filename, cause)
	}

	buf := make([]byte, u.ChunkSize)
	report.Emit("Uploading", 0, fmt.Sprintf("0/%d chunks", total))
	for index := 0; index < total; index++ {
		if err := ctx.Err(); err != nil {
			return abort("send", err)
		}
		n, err := io.ReadFull(f, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return abort("read chunk", err)
		}
		assembled, done, err := sender.Send(ctx, sessionID, index, total, buf[:n], filename)
		if err != nil {
			return abort(fmt.Sprintf("send chunk %d/%d", index, total), err)
		}
		report.Emit("Uploading", Progress(index+1, total, u.Fraction)*100, fmt.Sprintf("%d/%d chunks", index+1, total))
		if index == total-1 {
			if !done || assembled == "" {
				return abort("finalize", errors.New("receiver did not assemble the file"))
			}
			return assembled, nil
		}
	}
	return abort("finalize", errors.New("no chunks sent"))
}

// LocalSender feeds chunks straight into an in-process Receiver.
type LocalSender struct {
	Receiver *Receiver
}

func (s LocalSender) Begin(_ context.Context, filename string) (string, error) {
	return s.Receiver.Begin(filename)
}

func (s LocalSender) Send(ctx context.Context, sessionID string, index, total int, data []byte, filename string) (string, bool, error) {
	return s.Receiver.Receive(ctx, sessionID, index, total, data, filename)
}

func (s LocalSender) Abort(_ context.Context, sessionID string) error {
	return s.Receiver.Abort(sessionID)
}
