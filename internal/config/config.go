package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	UploadDir string `toml:"upload_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
	APIToken  string `toml:"api_token"`
}

// Transcription contains the speech-to-text service connection settings.
type Transcription struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	// Language is an optional spoken-language hint (ISO 639-1 or a name).
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// PacingMillis is the delay between consecutive segment requests.
	PacingMillis int `toml:"pacing_ms"`
	// PacingMode is PacingDelay (pause after each request) or PacingInterval
	// (minimum spacing between request starts).
	PacingMode    string `toml:"pacing_mode"`
	RetryAttempts int    `toml:"retry_attempts"`
}

// Pacing modes accepted by transcription.pacing_mode.
const (
	PacingDelay    = "delay"
	PacingInterval = "interval"
)

// Upload contains chunked transfer settings.
type Upload struct {
	ChunkSize int `toml:"chunk_size"`
	// ProgressFraction is the share of overall progress attributed to the
	// upload itself; the remainder covers post-upload preparation.
	ProgressFraction  float64 `toml:"progress_fraction"`
	SessionTTLSeconds int     `toml:"session_ttl_seconds"`
}

// Detection contains voice activity detection settings.
type Detection struct {
	ChunkSize          int     `toml:"chunk_size"`
	Threshold          float64 `toml:"threshold"`
	PaddingChunks      int     `toml:"padding_chunks"`
	MaxMergeGapSeconds float64 `toml:"max_merge_gap_seconds"`
}

// Import contains the timing heuristics used when a foreign transcript lacks
// explicit end times.
type Import struct {
	WordsPerSecond     float64 `toml:"words_per_second"`
	MinLastSeconds     float64 `toml:"min_last_seconds"`
	CharsPerSecond     float64 `toml:"chars_per_second"`
	MinFallbackSeconds float64 `toml:"min_fallback_seconds"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Tools names the external binaries used for media handling.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Config encapsulates all configuration values for the transcriber.
//
// Configuration sections by subsystem:
//   - Paths: data, upload, work and log directories plus the API bind address
//   - Transcription: speech-to-text endpoint, credentials and pacing
//   - Upload: chunk size, progress share and session expiry
//   - Detection: voice activity detection thresholds and segment merging
//   - Import: timing heuristics for imported transcripts
//   - Workflow: daemon polling intervals
//   - Logging: log format and level
//   - Tools: ffmpeg/ffprobe executables
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Upload        Upload        `toml:"upload"`
	Detection     Detection     `toml:"detection"`
	Import        Import        `toml:"import"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
	Tools         Tools         `toml:"tools"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/transcriber/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("transcriber.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon and CLI write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite project store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "transcriber.db")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "transcriber.lock")
}

// FFmpegBinary returns the ffmpeg executable used for audio normalization.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return defaultFFmpegBinary
}

// FFprobeBinary returns the ffprobe executable used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return defaultFFprobeBinary
}

// PacingInterval returns the delay between consecutive transcription requests.
func (c *Config) PacingInterval() time.Duration {
	return time.Duration(c.Transcription.PacingMillis) * time.Millisecond
}

// TranscriptionTimeout returns the per-request HTTP timeout.
func (c *Config) TranscriptionTimeout() time.Duration {
	return time.Duration(c.Transcription.TimeoutSeconds) * time.Second
}

// SessionTTL returns how long an idle upload session is kept.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Upload.SessionTTLSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
