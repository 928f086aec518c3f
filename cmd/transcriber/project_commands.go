package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"transcriber/internal/api"
	"transcriber/internal/export"
	"transcriber/internal/project"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var redo bool
	cmd := &cobra.Command{
		Use:   "transcribe <project-id|project-file>",
		Short: "Transcribe a project's segments",
		Long: "Queues a daemon project for transcription when given an id, or transcribes\n" +
			"a saved project file in-process and writes results back to it.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			if !target.remote() {
				return transcribeLocal(cmd, ctx, target.Path, redo)
			}
			return ctx.withClient(func(client *api.Client) error {
				p, err := client.Transcribe(cmd.Context(), target.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Project %d %s\n", p.ID, p.Status)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&redo, "all", false, "Re-transcribe segments that already have text (project files only)")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <project-id|project-file> <segment-index>",
		Short: "Re-transcribe a single segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			index, err := parseSegmentIndex(args[1])
			if err != nil {
				return err
			}
			if !target.remote() {
				return retryLocal(cmd, ctx, target.Path, index)
			}
			return ctx.withClient(func(client *api.Client) error {
				seg, err := client.RetrySegment(cmd.Context(), target.ID, index)
				if err != nil {
					return err
				}
				printSegments(cmd.OutOrStdout(), []api.Segment{seg})
				if seg.Error != "" {
					return fmt.Errorf("segment %d failed: %s", index, seg.Error)
				}
				return nil
			})
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatName string
	var output string

	cmd := &cobra.Command{
		Use:   "export <project-id|project-file>",
		Short: "Export transcribed segments as txt, md, vtt or srt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(formatName)
			if err != nil {
				return err
			}

			var body []byte
			if target.remote() {
				err = ctx.withClient(func(client *api.Client) error {
					body, err = client.Export(cmd.Context(), target.ID, string(format))
					return err
				})
			} else {
				body, err = exportLocal(target.Path, format)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s export to %s\n", format, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "txt", "Export format (txt, md, vtt, srt)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func exportLocal(path string, format export.Format) ([]byte, error) {
	p, err := project.Load(path)
	if err != nil {
		return nil, err
	}
	rendered, err := export.Render(format, p.Segments)
	if err != nil {
		return nil, err
	}
	return []byte(rendered), nil
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <project-id>",
		Short: "Cancel detection or transcription of a daemon project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				p, err := client.Cancel(cmd.Context(), id)
				if err != nil {
					return err
				}
				if p.CancelPending {
					fmt.Fprintf(cmd.OutOrStdout(), "Cancel requested for project %d\n", p.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Project %d %s\n", p.ID, p.Status)
				return nil
			})
		},
	}
}

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Inspect and manage projects",
	}
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectRemoveCommand(ctx))
	return projectCmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List daemon projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				projects, err := client.ListProjects(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, projects)
				}
				printProjects(cmd.OutOrStdout(), projects)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func printProjects(out io.Writer, projects []api.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects")
		return
	}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		segments := "-"
		if p.SegmentCounts != nil {
			segments = fmt.Sprintf("%d/%d", p.SegmentCounts.Done, p.SegmentCounts.Total)
		}
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.Name,
			p.Status,
			segments,
			progressLabel(p.Progress),
			p.UpdatedAt,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"ID", "Name", "Status", "Done", "Progress", "Updated"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
}

func progressLabel(p api.ProjectProgress) string {
	if p.Stage == "" {
		return ""
	}
	label := fmt.Sprintf("%s %.0f%%", p.Stage, p.Percent)
	if msg := strings.TrimSpace(p.Message); msg != "" {
		label += " (" + msg + ")"
	}
	return label
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <project-id|project-file>",
		Short: "Show a project and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !target.remote() {
				p, err := project.Load(target.Path)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.ProjectResponse{
						Project:  api.Project{Name: p.Name, SourceFilename: p.SourceFilename, SegmentCounts: api.CountSegments(p.Segments)},
						Segments: localSegments(p),
					})
				}
				printLocalProject(out, target.Path, p)
				return nil
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.GetProject(cmd.Context(), target.ID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printRemoteProject(out, resp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func printRemoteProject(out io.Writer, resp api.ProjectResponse) {
	p := resp.Project
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(fmt.Sprintf("Project %d: %s", p.ID, p.Name), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Status", projectStatusKind(p.Status), p.Status, colorize))
	if p.SourceFilename != "" {
		fmt.Fprintln(out, renderStatusLine("Source", statusInfo, p.SourceFilename, colorize))
	}
	if label := progressLabel(p.Progress); label != "" {
		fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, label, colorize))
	}
	if p.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, p.ErrorMessage, colorize))
	}
	if p.CancelPending {
		fmt.Fprintln(out, renderStatusLine("Cancel pending", statusWarn, yesNo(true), colorize))
	}
	if p.LogPath != "" {
		fmt.Fprintln(out, renderStatusLine("Log", statusInfo, p.LogPath, colorize))
	}
	fmt.Fprintln(out)
	printSegments(out, resp.Segments)
}

func newProjectRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <project-id>",
		Short: "Remove a daemon project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				if err := client.RemoveProject(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed project %d\n", id)
				return nil
			})
		},
	}
}
