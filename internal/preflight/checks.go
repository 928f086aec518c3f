package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"transcriber/internal/config"
	"transcriber/internal/deps"
	"transcriber/internal/transcribe"
)

const transcriptionCheckName = "Transcription API"

// CheckTranscriptionConfig verifies the service settings without contacting it.
func CheckTranscriptionConfig(cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: transcriptionCheckName, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
		return Result{Name: transcriptionCheckName, Detail: "API key missing"}
	}
	if strings.TrimSpace(cfg.Transcription.BaseURL) == "" {
		return Result{Name: transcriptionCheckName, Detail: "base url missing"}
	}
	return Result{Name: transcriptionCheckName, Passed: true, Detail: fmt.Sprintf("%s (%s)", cfg.Transcription.BaseURL, cfg.Transcription.Model)}
}

// CheckTranscription verifies that the transcription API is reachable and
// the key is accepted. It uses a 15-second timeout and a single attempt.
func CheckTranscription(ctx context.Context, cfg *config.Config) Result {
	if result := CheckTranscriptionConfig(cfg); !result.Passed {
		return result
	}

	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client := transcribe.NewClient(transcribe.Config{
		BaseURL: cfg.Transcription.BaseURL,
		APIKey:  cfg.Transcription.APIKey,
		Model:   cfg.Transcription.Model,
	}, transcribe.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: transcriptionCheckName, Detail: summarizeAPIError(err)}
	}
	return Result{Name: transcriptionCheckName, Passed: true, Detail: "API reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the media tools for the given config. Both the
// daemon and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return deps.CheckBinaries(deps.MediaRequirements(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	var apiErr *transcribe.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return "auth failed (invalid api key)"
		default:
			return fmt.Sprintf("health check failed (%d)", apiErr.StatusCode)
		}
	}
	return err.Error()
}
