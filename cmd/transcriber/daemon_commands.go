package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"transcriber/internal/api"
	"transcriber/internal/daemonctl"
	"transcriber/internal/store"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startDiagnostic bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the transcriber daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				cmd.Context(),
				client,
				exe,
				daemonLaunchOptions(ctx, startDiagnostic),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				fmt.Fprintf(stdout, "Daemon started (pid %d, %s)\n", result.PID, client.BaseURL)
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(stdout, "Daemon already running (pid %d)\n", result.PID)
			}
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startDiagnostic, "diagnostic", false, "Enable diagnostic mode with separate DEBUG logs")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the transcriber daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cmd.Context(), client, ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and project status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			var client daemonctl.StatusClient
			if c, err := ctx.apiClient(); err == nil {
				client = c
			}
			status, err := daemonctl.BuildStatusSnapshot(cmd.Context(), client, cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, status)
			}
			printStatus(cmd, status)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func printStatus(cmd *cobra.Command, status api.DaemonStatus) {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if status.Running {
		fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(status.PID)+")", colorize))
		fmt.Fprintln(stdout, renderStatusLine("Workflow", workflowKind(status.Workflow), workflowDetail(status.Workflow), colorize))
		fmt.Fprintln(stdout, renderStatusLine("Upload sessions", statusInfo, strconv.Itoa(status.UploadSessions), colorize))
	} else {
		fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	}
	fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, databaseDetail(status.DatabasePath), colorize))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("System Checks", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, check := range status.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(stdout, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, line := range dependencyLines(status.Dependencies, colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Projects", colorize) {
		fmt.Fprintln(stdout, line)
	}
	rows := projectStatsRows(status.Workflow.ProjectStats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No projects")
		return
	}
	fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func workflowKind(wf api.WorkflowStatus) statusKind {
	if wf.LastError != "" {
		return statusWarn
	}
	if wf.Running {
		return statusOK
	}
	return statusInfo
}

func workflowDetail(wf api.WorkflowStatus) string {
	parts := []string{"idle"}
	if wf.ActiveProject > 0 {
		parts[0] = fmt.Sprintf("processing project %d", wf.ActiveProject)
	}
	if wf.LastError != "" {
		parts = append(parts, "last error: "+wf.LastError)
	}
	return strings.Join(parts, "; ")
}

func databaseDetail(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return path + " (not created)"
	}
	return fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(info.Size())))
}

func dependencyLines(deps []api.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

// projectStatsRows lists non-zero counts in lifecycle order.
func projectStatsRows(stats map[string]int) [][]string {
	order := make(map[string]int)
	for i, status := range store.AllStatuses() {
		order[string(status)] = i
	}
	names := make([]string, 0, len(stats))
	for name, count := range stats {
		if count > 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return order[names[i]] < order[names[j]] })

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(stats[name])})
	}
	return rows
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, diagnostic bool) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		Diagnostic: diagnostic,
	}
}
