package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"transcriber/internal/api"
	"transcriber/internal/daemonrun"
	"transcriber/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var projectArg string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon or project logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveLogPath(cmd, ctx, projectArg)
			if err != nil {
				return err
			}

			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) && !follow {
					return fmt.Errorf("no log file at %s", path)
				}
				if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, logs.DefaultFollowInterval, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&projectArg, "project", "", "Show the log of a daemon project instead of the daemon")
	return cmd
}

func resolveLogPath(cmd *cobra.Command, ctx *commandContext, projectArg string) (string, error) {
	if projectArg == "" {
		cfg, err := ctx.ensureConfig()
		if err != nil {
			return "", err
		}
		return daemonrun.CurrentLogPath(cfg), nil
	}
	id, err := parseProjectID(projectArg)
	if err != nil {
		return "", err
	}
	var path string
	err = ctx.withClient(func(client *api.Client) error {
		resp, err := client.GetProject(cmd.Context(), id)
		if err != nil {
			return err
		}
		path = resp.Project.LogPath
		return nil
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", fmt.Errorf("project %d has no log file", id)
	}
	return path, nil
}
