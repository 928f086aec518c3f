package workflow

import (
	"log/slog"

	"transcriber/internal/audio"
	"transcriber/internal/config"
	"transcriber/internal/media/ffmpeg"
	"transcriber/internal/orchestrator"
	"transcriber/internal/pacing"
	"transcriber/internal/preflight"
	"transcriber/internal/services"
	"transcriber/internal/store"
	"transcriber/internal/transcribe"
	"transcriber/internal/vad"
)

// Stages holds the default handlers built from configuration.
type Stages struct {
	Detection     *DetectionStage
	Transcription *TranscriptionStage
}

// Set returns the handlers in the form ConfigureStages expects.
func (s Stages) Set() StageSet {
	return StageSet{Detection: s.Detection, Transcription: s.Transcription}
}

// NewExtractor builds the audio extractor backed by the configured ffmpeg.
func NewExtractor(cfg *config.Config) *audio.Extractor {
	return audio.NewExtractor(ffmpeg.NewConverter(cfg.FFmpegBinary(), cfg.Paths.WorkDir))
}

// NewSegmenter builds a speech segmenter tuned by the detection settings.
func NewSegmenter(cfg *config.Config, extractor *audio.Extractor, logger *slog.Logger) *vad.Segmenter {
	detector := vad.NewEnergyDetector()
	if cfg.Detection.ChunkSize > 0 {
		detector.Frame = cfg.Detection.ChunkSize
	}
	if cfg.Detection.Threshold > 0 {
		detector.Threshold = cfg.Detection.Threshold
	}
	if cfg.Detection.PaddingChunks >= 0 {
		detector.Padding = cfg.Detection.PaddingChunks
	}
	seg := vad.NewSegmenter(detector, extractor, logger)
	if cfg.Detection.MaxMergeGapSeconds >= 0 {
		seg.MaxMergeGap = cfg.Detection.MaxMergeGapSeconds
	}
	return seg
}

// NewOrchestrator builds the segment transcription driver for cfg.
func NewOrchestrator(cfg *config.Config, extractor *audio.Extractor, logger *slog.Logger, opts ...transcribe.Option) *orchestrator.Orchestrator {
	clientOpts := []transcribe.Option{transcribe.WithRetryMaxAttempts(cfg.Transcription.RetryAttempts)}
	client := transcribe.NewClient(transcribe.Config{
		BaseURL:        cfg.Transcription.BaseURL,
		APIKey:         cfg.Transcription.APIKey,
		Model:          cfg.Transcription.Model,
		Language:       cfg.Transcription.Language,
		TimeoutSeconds: cfg.Transcription.TimeoutSeconds,
	}, append(clientOpts, opts...)...)

	return orchestrator.New(client, extractor, NewPacer(cfg), logger)
}

// NewPacer builds the request pacing policy named by transcription.pacing_mode.
func NewPacer(cfg *config.Config) pacing.Pacer {
	interval := cfg.PacingInterval()
	switch {
	case interval <= 0:
		return pacing.None
	case cfg.Transcription.PacingMode == config.PacingInterval:
		return pacing.NewTicker(interval)
	default:
		return pacing.NewFixedDelay(interval)
	}
}

// NewStages wires the default detection and transcription handlers.
func NewStages(cfg *config.Config, st *store.Store, logger *slog.Logger) Stages {
	extractor := NewExtractor(cfg)
	return Stages{
		Detection: &DetectionStage{
			Detector: NewSegmenter(cfg, extractor, logger),
			Store:    st,
		},
		Transcription: &TranscriptionStage{
			Runner: NewOrchestrator(cfg, extractor, logger),
			Store:  st,
			Ready:  APIKeyCheck(cfg),
		},
	}
}

// APIKeyCheck reports a missing transcription key as a configuration error.
func APIKeyCheck(cfg *config.Config) func() error {
	return func() error {
		if result := preflight.CheckTranscriptionConfig(cfg); !result.Passed {
			return services.Wrap(services.ErrConfiguration, "transcription", "check config",
				result.Detail+" (set transcription.api_key or export TRANSCRIBER_API_KEY)", nil)
		}
		return nil
	}
}
