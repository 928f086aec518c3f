package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"transcriber/internal/api"
	"transcriber/internal/config"
	"transcriber/internal/deps"
	"transcriber/internal/logging"
	"transcriber/internal/preflight"
	"transcriber/internal/segment"
	"transcriber/internal/store"
	"transcriber/internal/transfer"
	"transcriber/internal/workflow"
)

// SegmentRetrier re-transcribes a single stored segment.
type SegmentRetrier interface {
	Retry(ctx context.Context, project *store.Project, index int) (segment.Segment, error)
}

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	workflow *workflow.Manager
	receiver *transfer.Receiver
	retrier  SegmentRetrier
	projects *api.ProjectService
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	Workflow       workflow.StatusSummary
	DatabasePath   string
	LockFilePath   string
	UploadSessions int
	Dependencies   []deps.Status
	Checks         []preflight.Result
}

// New constructs a daemon with initialized dependencies. retrier may be nil,
// in which case segment retries are rejected.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, wf *workflow.Manager, receiver *transfer.Receiver, retrier SegmentRetrier) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil || wf == nil || receiver == nil {
		return nil, errors.New("daemon requires config, store, logger, workflow manager, and upload receiver")
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		workflow: wf,
		receiver: receiver,
		retrier:  retrier,
		projects: api.NewProjectService(st, wf.ProjectLogPath),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, launches the workflow manager and begins
// serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another transcriber daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(d.ctx); err != nil {
		d.workflow.Stop()
		d.abortStart()
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("transcriber daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("transcriber daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Address reports the bound API address once started.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		Workflow:       d.workflow.Status(ctx),
		DatabasePath:   d.store.Path(),
		LockFilePath:   d.lockPath,
		UploadSessions: d.receiver.Active(),
		Dependencies:   preflight.CheckSystemDeps(d.cfg),
		Checks:         preflight.RunAll(ctx, d.cfg, false),
	}
}
