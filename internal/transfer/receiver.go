package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"transcriber/internal/audio"
	"transcriber/internal/fileutil"
	"transcriber/internal/logging"
	"transcriber/internal/services"
)

var (
	ErrUnknownSession = errors.New("unknown upload session")
	ErrChunkIndex     = errors.New("chunk index out of range")
	ErrDuplicateChunk = errors.New("duplicate chunk")
	ErrTotalMismatch  = errors.New("chunk total changed mid-session")
	ErrMissingChunks  = errors.New("missing chunks")
	ErrChunkTooLarge  = errors.New("chunk exceeds maximum size")
)

// DefaultSessionTTL bounds how long an idle session is kept.
const DefaultSessionTTL = time.Hour

type session struct {
	id       string
	filename string
	dir      string
	total    int
	received map[int]int64
	updated  time.Time
}

// Receiver assembles chunked uploads under a staging directory.
type Receiver struct {
	dir      string
	maxChunk int
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// ReceiverOption customizes a Receiver.
type ReceiverOption func(*Receiver)

// WithMaxChunk caps the accepted chunk length.
func WithMaxChunk(n int) ReceiverOption {
	return func(r *Receiver) {
		if n > 0 {
			r.maxChunk = n
		}
	}
}

// WithSessionTTL sets the idle time after which Sweep discards a session.
func WithSessionTTL(ttl time.Duration) ReceiverOption {
	return func(r *Receiver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ReceiverOption {
	return func(r *Receiver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReceiver stages uploads under dir.
func NewReceiver(dir string, logger *slog.Logger, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		dir:      dir,
		maxChunk: ChunkSize,
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		logger:   logging.NewComponentLogger(logger, "transfer"),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Begin opens a session for filename and returns its id.
func (r *Receiver) Begin(filename string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.openLocked(uuid.NewString(), filename)
	if err != nil {
		return "", err
	}
	return s.id, nil
}

func (r *Receiver) openLocked(id, filename string) (*session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, services.Wrap(services.ErrTransfer, "upload", "open session", fmt.Sprintf("invalid session id %q", id), services.ErrValidation)
	}
	dir := filepath.Join(r.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransfer, "upload", "open session", "", err)
	}
	s := &session{
		id:       id,
		filename: filepath.Base(strings.TrimSpace(filename)),
		dir:      dir,
		received: make(map[int]int64),
		updated:  r.now(),
	}
	r.sessions[id] = s
	r.logger.Debug("upload session opened", logging.SessionID(id), logging.String("filename", s.filename))
	return s, nil
}

// Receive stores one chunk. An unknown session id opens a session
// implicitly. When index is total-1 and all chunks are present the file is
// assembled and its path returned with done set. Any error aborts the session.
func (r *Receiver) Receive(ctx context.Context, sessionID string, index, total int, data []byte, filename string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		var err error
		if s, err = r.openLocked(sessionID, filename); err != nil {
			return "", false, err
		}
	}
	fail := func(operation string, cause error) (string, bool, error) {
		r.abortLocked(s, cause)
		return "", false, services.Wrap(services.ErrTransfer, "upload", operation,
			fmt.Sprintf("session %s chunk %d/%d", s.id, index, total), cause)
	}

	switch {
	case total <= 0 || index < 0 || index >= total:
		return fail("validate chunk", ErrChunkIndex)
	case s.total != 0 && s.total != total:
		return fail("validate chunk", ErrTotalMismatch)
	case len(data) > r.maxChunk:
		return fail("validate chunk", ErrChunkTooLarge)
	}
	if _, dup := s.received[index]; dup {
		return fail("validate chunk", ErrDuplicateChunk)
	}
	s.total = total
	if s.filename == "" || s.filename == "." {
		s.filename = filepath.Base(strings.TrimSpace(filename))
	}

	if err := os.WriteFile(partPath(s.dir, index), data, 0o600); err != nil {
		return fail("stage chunk", err)
	}
	s.received[index] = int64(len(data))
	s.updated = r.now()

	if index != total-1 {
		return "", false, nil
	}
	if missing := s.missing(); len(missing) > 0 {
		return fail("assemble", fmt.Errorf("%w: %s", ErrMissingChunks, formatIndices(missing)))
	}
	path, err := r.assembleLocked(s)
	if err != nil {
		return fail("assemble", err)
	}
	return path, true, nil
}

func (r *Receiver) assembleLocked(s *session) (string, error) {
	parts := make([]string, s.total)
	for i := range parts {
		parts[i] = partPath(s.dir, i)
	}
	ext := string(audio.FormatFromPath(s.filename))
	if ext == "" {
		ext = string(audio.FormatWAV)
	}
	dest := filepath.Join(r.dir, uuid.NewString()+"."+ext)
	size, err := fileutil.Concat(dest, parts)
	if err != nil {
		return "", err
	}
	delete(r.sessions, s.id)
	_ = os.RemoveAll(s.dir)
	r.logger.Info("upload assembled",
		logging.SessionID(s.id),
		logging.String("filename", s.filename),
		logging.String("path", dest),
		logging.Int("chunks", s.total),
		logging.Int64("bytes", size),
	)
	return dest, nil
}

// Abort discards a session and its staged chunks.
func (r *Receiver) Abort(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return services.Wrap(services.ErrNotFound, "upload", "abort", sessionID, ErrUnknownSession)
	}
	r.abortLocked(s, errors.New("aborted by client"))
	return nil
}

func (r *Receiver) abortLocked(s *session, cause error) {
	delete(r.sessions, s.id)
	_ = os.RemoveAll(s.dir)
	logging.WarnWithContext(r.logger, "upload session aborted", "upload_aborted",
		logging.SessionID(s.id),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "restart the upload from the first chunk"),
		logging.String(logging.FieldImpact, "partial upload discarded"),
	)
}

// Sweep discards sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Receiver) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if now.Sub(s.updated) <= r.ttl {
			continue
		}
		delete(r.sessions, id)
		_ = os.RemoveAll(s.dir)
		removed++
	}
	if removed > 0 {
		r.logger.Info("expired upload sessions removed", logging.Int("count", removed))
	}
	return removed
}

// Active returns the number of open sessions.
func (r *Receiver) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (s *session) missing() []int {
	var out []int
	for i := 0; i < s.total; i++ {
		if _, ok := s.received[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

func partPath(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index)+".part")
}

func formatIndices(indices []int) string {
	sort.Ints(indices)
	const limit = 10
	parts := make([]string, 0, limit+1)
	for i, idx := range indices {
		if i == limit {
			parts = append(parts, fmt.Sprintf("and %d more", len(indices)-limit))
			break
		}
		parts = append(parts, strconv.Itoa(idx))
	}
	return strings.Join(parts, ", ")
}
