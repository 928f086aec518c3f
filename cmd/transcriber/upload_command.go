package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"transcriber/internal/api"
	"transcriber/internal/audio"
	"transcriber/internal/config"
	"transcriber/internal/store"
	"transcriber/internal/transfer"
)

// segmentedPollInterval paces status polling while waiting for detection.
var segmentedPollInterval = 500 * time.Millisecond

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var name string
	var queue bool

	cmd := &cobra.Command{
		Use:   "upload <audio-file>",
		Short: "Upload audio to the daemon and create a project",
		Long: "Sends the file to the daemon in chunks, creates a project from the\n" +
			"assembled upload and optionally queues it for transcription once\n" +
			"speech detection has finished.",
		Args: cobra.ExactArgs(1),
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
			if !audio.IsSupported(source) {
				return fmt.Errorf("unsupported audio format %q (supported: wav, mp3, m4a, aac, flac, ogg)", filepath.Ext(source))
			}

			out := cmd.OutOrStdout()
			return ctx.withClient(func(client *api.Client) error {
				sender := transfer.NewHTTPSender(client.BaseURL, client.Token)
				uploader := transfer.NewUploader(cfg.Upload.ChunkSize, cfg.Upload.ProgressFraction)

				reporter := newProgressReporter(cmd.ErrOrStderr(), "Uploading")
				assembled, err := uploader.Upload(cmd.Context(), source, sender, reporter.Func())
				reporter.Finish()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Uploaded %s (%s)\n", filepath.Base(source), humanize.Bytes(uint64(info.Size())))

				p, err := client.CreateProject(cmd.Context(), api.CreateProjectRequest{
					Name:           projectName(name, source),
					Path:           assembled,
					SourceFilename: filepath.Base(source),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Created project %d (%s)\n", p.ID, p.Name)
				if !queue {
					return nil
				}

				p, err = waitForSegmented(cmd.Context(), client, p.ID)
				if err != nil {
					return err
				}
				p, err = client.Transcribe(cmd.Context(), p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Project %d %s for transcription\n", p.ID, p.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (default: audio file name)")
	cmd.Flags().BoolVar(&queue, "transcribe", false, "Queue transcription once segments are detected")
	return cmd
}

// waitForSegmented polls until detection leaves the project segmented.
func waitForSegmented(ctx context.Context, client *api.Client, id int64) (api.Project, error) {
	for {
		resp, err := client.GetProject(ctx, id)
		if err != nil {
			return api.Project{}, err
		}
		switch store.Status(resp.Project.Status) {
		case store.StatusSegmented:
			return resp.Project, nil
		case store.StatusFailed, store.StatusCanceled:
			detail := resp.Project.ErrorMessage
			if detail == "" {
				detail = resp.Project.Status
			}
			return api.Project{}, fmt.Errorf("speech detection did not finish for project %d: %s", id, detail)
		}
		select {
		case <-ctx.Done():
			return api.Project{}, ctx.Err()
		case <-time.After(segmentedPollInterval):
		}
	}
}
