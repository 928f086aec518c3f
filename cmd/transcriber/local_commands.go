package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"transcriber/internal/api"
	"transcriber/internal/audio"
	"transcriber/internal/config"
	"transcriber/internal/language"
	"transcriber/internal/media/ffprobe"
	"transcriber/internal/noscribe"
	"transcriber/internal/orchestrator"
	"transcriber/internal/project"
	"transcriber/internal/segment"
	"transcriber/internal/services"
	"transcriber/internal/workflow"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var output string
	var name string

	cmd := &cobra.Command{
		Use:   "detect <audio-file>",
		Short: "Detect speech segments and save a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("inspect audio %q: %w", source, err)
			}
			target := output
			if target == "" {
				target = defaultProjectPath(source)
			}

			out := cmd.OutOrStdout()
			logger := ctx.logger()
			extractor := workflow.NewExtractor(cfg)
			segmenter := workflow.NewSegmenter(cfg, extractor, logger)

			reporter := newProgressReporter(cmd.ErrOrStderr(), "Detecting")
			segs, err := segmenter.Detect(cmd.Context(), source, reporter.Func())
			reporter.Finish()
			if err != nil {
				return err
			}
			payload, err := audio.EncodePayload(source)
			if err != nil {
				return err
			}

			p := &segment.Project{
				Name:           projectName(name, source),
				SourceFilename: filepath.Base(source),
				SourceAudio:    payload,
				SourcePath:     source,
				Segments:       segs,
			}
			if err := project.Save(target, p); err != nil {
				return err
			}

			fmt.Fprintf(out, "Source: %s (%s%s)\n", filepath.Base(source), humanize.Bytes(uint64(info.Size())), probeSummary(cmd.Context(), cfg, source))
			fmt.Fprintf(out, "Detected %d speech segments\n", len(segs))
			printSegments(out, localSegments(p))
			fmt.Fprintf(out, "Saved project to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Project file to write (default: next to the audio)")
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: audio file name)")
	return cmd
}

// probeSummary formats the ffprobe duration and tagged language as a suffix,
// or nothing when ffprobe is unavailable.
func probeSummary(ctx context.Context, cfg *config.Config, path string) string {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := ffprobe.Inspect(probeCtx, cfg.FFprobeBinary(), path)
	if err != nil {
		return ""
	}
	var b strings.Builder
	if seconds := result.DurationSeconds(); seconds > 0 {
		b.WriteString(", " + formatSeconds(seconds))
	}
	if lang := result.Language(); lang != "" {
		b.WriteString(", " + language.DisplayName(lang))
	}
	return b.String()
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var name string

	cmd := &cobra.Command{
		Use:   "import <noscribe.html>",
		Short: "Import a noScribe transcript as a project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("open transcript: %w", err)
			}
			defer f.Close()

			result, err := noscribe.Parse(f, noscribe.Options{
				WordsPerSecond:     cfg.Import.WordsPerSecond,
				MinLastSeconds:     cfg.Import.MinLastSeconds,
				CharsPerSecond:     cfg.Import.CharsPerSecond,
				MinFallbackSeconds: cfg.Import.MinFallbackSeconds,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := &segment.Project{
				Name:     projectName(name, source),
				Segments: result.Segments,
			}
			loc := noscribe.Locate(result, filepath.Dir(source), nil)
			switch {
			case loc.Path == "":
				fmt.Fprintln(out, "Transcript names no source audio; segments kept without audio")
			case loc.Missing:
				p.SourceFilename = filepath.Base(loc.Path)
				fmt.Fprintf(out, "Source audio %s not found; segments kept without audio\n", loc.Path)
			default:
				payload, err := audio.EncodePayload(loc.Path)
				if err != nil {
					return err
				}
				p.SourceFilename = filepath.Base(loc.Path)
				p.SourcePath = loc.Path
				p.SourceAudio = payload
				fmt.Fprintf(out, "Source audio: %s (%s)\n", loc.Path, humanize.Bytes(uint64(len(payload))))
			}

			if result.Merged > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warn: %d entries repeated an earlier timestamp and were merged into the previous segment\n", result.Merged)
			}
			if err := validateLocal(p); err != nil {
				return err
			}

			target := output
			if target == "" {
				target = defaultProjectPath(source)
			}
			if err := project.Save(target, p); err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported %s\n", result.Summary())
			fmt.Fprintf(out, "Saved project to %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Project file to write (default: next to the transcript)")
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: transcript file name)")
	return cmd
}

// transcribeLocal runs the batch on a saved project. Finished segments are
// checkpointed to the file periodically and once more at the end, so an
// interrupt keeps completed work.
func transcribeLocal(cmd *cobra.Command, ctx *commandContext, path string, redo bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := workflow.APIKeyCheck(cfg)(); err != nil {
		return err
	}
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	if errors.Is(p.Validate(), segment.ErrMissingSourceAudio) {
		fmt.Fprintln(cmd.ErrOrStderr(), "warn: project has no source audio; segments without their own audio will fail")
	}
	orch := workflow.NewOrchestrator(cfg, workflow.NewExtractor(cfg), ctx.logger())

	out := cmd.OutOrStdout()
	reporter := newProgressReporter(cmd.ErrOrStderr(), "Transcribing")
	report := reporter.Func()
	visited := 0
	checkpoint := project.NewCheckpoint(path, project.DefaultCheckpointInterval)
	summary, runErr := orch.TranscribeAll(cmd.Context(), p, orchestrator.Options{
		SkipDone: !redo,
		OnUpdate: func(u orchestrator.Update) {
			if u.Kind == orchestrator.UpdateStarted {
				return
			}
			visited++
			report.Emit("Transcribing", float64(visited)*100/float64(max(u.Total, 1)),
				fmt.Sprintf("%d/%d", visited, u.Total))
			if u.Kind == orchestrator.UpdateSkipped {
				return
			}
			checkpoint.Mark(p)
		},
	})
	reporter.Finish()
	if err := checkpoint.Flush(p); err != nil {
		return err
	}
	if err := checkpoint.Err(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warn: intermediate save failed: %v\n", err)
	}

	fmt.Fprintf(out, "Transcribed %d of %d segments (%d failed, %d skipped)\n",
		summary.Completed, summary.Total, summary.Failed, summary.Skipped)
	printSegments(out, localSegments(p))
	if summary.Canceled {
		fmt.Fprintln(out, "Canceled; completed segments were saved")
	}
	return runErr
}

func retryLocal(cmd *cobra.Command, ctx *commandContext, path string, index int) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if err := workflow.APIKeyCheck(cfg)(); err != nil {
		return err
	}
	p, err := project.Load(path)
	if err != nil {
		return err
	}
	orch := workflow.NewOrchestrator(cfg, workflow.NewExtractor(cfg), ctx.logger())
	seg, err := orch.Retry(cmd.Context(), p, index)
	if saveErr := project.Save(path, p); saveErr != nil {
		return saveErr
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printSegments(out, []api.Segment{api.FromSegment(index, seg)})
	if msg := seg.Error(); msg != "" {
		return fmt.Errorf("segment %d failed: %s", index, msg)
	}
	return nil
}

// validateLocal rejects projects whose segments are unordered or empty. A
// missing source payload is left to the caller since segments can still be
// edited and exported without audio.
func validateLocal(p *segment.Project) error {
	if err := p.Validate(); err != nil && !errors.Is(err, segment.ErrMissingSourceAudio) {
		return services.Wrap(services.ErrValidation, "project", "validate", p.Name, err)
	}
	return nil
}

func localSegments(p *segment.Project) []api.Segment {
	return api.FromSegments(p.Segments)
}
