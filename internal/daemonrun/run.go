package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"transcriber/internal/config"
	"transcriber/internal/daemon"
	"transcriber/internal/deps"
	"transcriber/internal/logging"
	"transcriber/internal/store"
	"transcriber/internal/transfer"
	"transcriber/internal/workflow"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Diagnostic  bool
	// Ready, when set, receives the bound API address once serving.
	Ready func(address string)
}

// PIDPath returns the pid file written while the daemon runs.
func PIDPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "transcriber.pid")
}

// CurrentLogPath returns the pointer to the most recent daemon run's log.
func CurrentLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "daemon.log")
}

// Run starts the transcriber daemon and blocks until ctx ends or the process
// receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("daemon-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if opts.Diagnostic {
		logger = withDiagnostics(logger, cfg, runID)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(CurrentLogPath(cfg), logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update daemon.log link: %v\n", err)
	}
	pidPath := PIDPath(cfg)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	st, err := store.Open(cfg)
	if err != nil {
		logger.Error("open project store", logging.Error(err))
		return err
	}

	receiver := transfer.NewReceiver(cfg.Paths.UploadDir, logger,
		transfer.WithMaxChunk(cfg.Upload.ChunkSize),
		transfer.WithSessionTTL(cfg.SessionTTL()),
	)
	stages := workflow.NewStages(cfg, st, logger)
	manager := workflow.NewManager(cfg, st, logger, workflow.WithSweeper(receiver))
	manager.ConfigureStages(stages.Set())

	d, err := daemon.New(cfg, st, logger, manager, receiver, stages.Transcription)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the api bind address and that no other daemon holds the lock"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.Address())
	}

	<-signalCtx.Done()
	logger.Info("transcriber daemon shutting down")
	return nil
}

func withDiagnostics(logger *slog.Logger, cfg *config.Config, runID string) *slog.Logger {
	sessionID := uuid.NewString()
	debugDir := filepath.Join(cfg.Paths.LogDir, "debug")
	debugLogPath := filepath.Join(debugDir, fmt.Sprintf("daemon-%s.log", runID))
	debugLogger, err := logging.New(logging.Options{
		Level:            "debug",
		Format:           "json",
		OutputPaths:      []string{debugLogPath},
		ErrorOutputPaths: []string{debugLogPath},
		Development:      true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to initialize debug logger: %v\n", err)
		return logger
	}
	logger = logging.TeeLogger(logger, debugLogger.Handler()).With(logging.SessionID(sessionID))
	if err := ensureCurrentLogPointer(filepath.Join(debugDir, "daemon.log"), debugLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update debug/daemon.log link: %v\n", err)
	}
	logger.Info("diagnostic mode enabled",
		logging.String(logging.FieldEventType, "diagnostic_mode_enabled"),
		logging.String("debug_log_path", debugLogPath),
	)
	return logger
}

func ensureCurrentLogPointer(current, target string) error {
	if target == "" {
		return nil
	}
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	ffmpeg := cfg.FFmpegBinary()
	ffprobe := deps.ResolveFFprobe(ffmpeg, cfg.FFprobeBinary())
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("api_key_present", strings.TrimSpace(cfg.Transcription.APIKey) != ""),
		logging.String("transcription_base_url", cfg.Transcription.BaseURL),
		logging.String("transcription_model", cfg.Transcription.Model),
		logging.Duration("pacing", cfg.PacingInterval()),
		logging.Bool("ffmpeg_available", binaryAvailable(ffmpeg)),
		logging.String("ffmpeg_binary", ffmpeg),
		logging.Bool("ffprobe_available", binaryAvailable(ffprobe)),
		logging.String("ffprobe_binary", ffprobe),
		logging.Bool("api_token_set", strings.TrimSpace(cfg.Paths.APIToken) != ""),
	)
}

func binaryAvailable(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	_, err := exec.LookPath(name)
	return err == nil
}
