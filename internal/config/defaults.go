package config

const (
	defaultDataDir                = "~/.local/share/transcriber"
	defaultUploadDir              = "~/.local/share/transcriber/uploads"
	defaultWorkDir                = "~/.local/share/transcriber/work"
	defaultLogDir                 = "~/.local/share/transcriber/logs"
	defaultAPIBind                = "127.0.0.1:7490"
	defaultTranscriptionBaseURL   = "https://api.openai.com/v1"
	defaultTranscriptionModel     = "whisper-1"
	defaultTranscriptionTimeout   = 120
	defaultTranscriptionPacingMS  = 500
	defaultTranscriptionRetries   = 3
	defaultUploadChunkSize        = 1 << 20
	defaultUploadProgressFraction = 0.9
	defaultUploadSessionTTL       = 3600
	defaultDetectionChunkSize     = 512
	defaultDetectionThreshold     = 0.5
	defaultDetectionPadding       = 2
	defaultDetectionMaxMergeGap   = 1.5
	defaultImportWordsPerSecond   = 3
	defaultImportMinLastSeconds   = 2
	defaultImportCharsPerSecond   = 100
	defaultImportMinFallback      = 3
	defaultWorkflowPollInterval   = 2
	defaultWorkflowErrorRetry     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			UploadDir: defaultUploadDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
			PacingMillis:   defaultTranscriptionPacingMS,
			PacingMode:     PacingDelay,
			RetryAttempts:  defaultTranscriptionRetries,
		},
		Upload: Upload{
			ChunkSize:         defaultUploadChunkSize,
			ProgressFraction:  defaultUploadProgressFraction,
			SessionTTLSeconds: defaultUploadSessionTTL,
		},
		Detection: Detection{
			ChunkSize:          defaultDetectionChunkSize,
			Threshold:          defaultDetectionThreshold,
			PaddingChunks:      defaultDetectionPadding,
			MaxMergeGapSeconds: defaultDetectionMaxMergeGap,
		},
		Import: Import{
			WordsPerSecond:     defaultImportWordsPerSecond,
			MinLastSeconds:     defaultImportMinLastSeconds,
			CharsPerSecond:     defaultImportCharsPerSecond,
			MinFallbackSeconds: defaultImportMinFallback,
		},
		Workflow: Workflow{
			PollInterval:       defaultWorkflowPollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetry,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
	}
}
