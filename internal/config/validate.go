package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval":        c.Workflow.PollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	if err := ensurePositiveMap(map[string]int{
		"transcription.timeout_seconds": c.Transcription.TimeoutSeconds,
		"transcription.retry_attempts":  c.Transcription.RetryAttempts,
	}); err != nil {
		return err
	}
	if c.Transcription.Language != "" && len(c.Transcription.Language) != 2 {
		return fmt.Errorf("transcription.language %q is not a recognized language", c.Transcription.Language)
	}
	if c.Transcription.PacingMillis < 0 {
		return errors.New("transcription.pacing_ms must not be negative")
	}
	switch c.Transcription.PacingMode {
	case PacingDelay, PacingInterval:
	default:
		return fmt.Errorf("transcription.pacing_mode %q must be %q or %q", c.Transcription.PacingMode, PacingDelay, PacingInterval)
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.ChunkSize <= 0 {
		return errors.New("upload.chunk_size must be positive")
	}
	if c.Upload.ProgressFraction <= 0 || c.Upload.ProgressFraction > 1 {
		return errors.New("upload.progress_fraction must be in (0, 1]")
	}
	if c.Upload.SessionTTLSeconds <= 0 {
		return errors.New("upload.session_ttl_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.ChunkSize <= 0 {
		return errors.New("detection.chunk_size must be positive")
	}
	if c.Detection.Threshold <= 0 || c.Detection.Threshold >= 1 {
		return errors.New("detection.threshold must be between 0 and 1")
	}
	if c.Detection.PaddingChunks < 0 {
		return errors.New("detection.padding_chunks must not be negative")
	}
	if c.Detection.MaxMergeGapSeconds < 0 {
		return errors.New("detection.max_merge_gap_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateImport() error {
	values := map[string]float64{
		"import.words_per_second":     c.Import.WordsPerSecond,
		"import.min_last_seconds":     c.Import.MinLastSeconds,
		"import.chars_per_second":     c.Import.CharsPerSecond,
		"import.min_fallback_seconds": c.Import.MinFallbackSeconds,
	}
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for _, key := range sortedKeys(values) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
