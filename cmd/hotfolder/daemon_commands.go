package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hotfolder/internal/config"
	"hotfolder/internal/daemon"
	"hotfolder/internal/daemonctl"
	"hotfolder/internal/deps"
	"hotfolder/internal/ingest"
	"hotfolder/internal/workunit"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the hotfolder daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}

			result, err := daemonctl.EnsureStarted(
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, startLogLevel),
				10*time.Second,
			)
			if err != nil {
				return err
			}

			switch result.State {
			case daemonctl.StartStateStarted:
				if result.PID > 0 {
					fmt.Fprintf(stdout, "Daemon started (pid %d)\n", result.PID)
				} else {
					fmt.Fprintln(stdout, "Daemon started")
				}
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintln(stdout, "Daemon already running")
			}
			return nil
		},
	}
	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Log level for the launched daemon")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the hotfolder daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.Stop(ctx.configValue(), 10*time.Second)
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

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, hotfolder, and work unit status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *workunit.Store) error {
				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("System Status", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range systemStatusLines(cfg, colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				template, templateErr := store.Template(cmd.Context(), cfg.Workflow.TemplateID)
				if templateErr != nil {
					fmt.Fprintln(stdout, renderStatusLine("Template", statusError, templateErr.Error(), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Template", statusOK, fmt.Sprintf("%s (id %d)", template.Title, template.ID), colorize))
				}
				for _, line := range dependencyLines(deps.CheckBinaries(deps.Requirements(cfg.Workflow.StepShell, template)), colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Hotfolder", colorize) {
					fmt.Fprintln(stdout, line)
				}
				statuses, err := ingest.Inspect(cfg, time.Now())
				switch {
				case err != nil:
					fmt.Fprintln(stdout, renderStatusLine("Scan", statusError, err.Error(), colorize))
				case len(statuses) == 0:
					fmt.Fprintln(stdout, "Hotfolder is empty")
				default:
					fmt.Fprint(stdout, renderEntryTable(statuses))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Work Unit Steps", colorize) {
					fmt.Fprintln(stdout, line)
				}
				stats, err := store.StepStats(cmd.Context())
				if err != nil {
					return err
				}
				rows := buildStepStatusRows(stats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No work units")
					return nil
				}
				fmt.Fprint(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func systemStatusLines(cfg *config.Config, colorize bool) []string {
	lines := make([]string, 0, 5)
	running, err := daemon.IsRunning(cfg)
	switch {
	case err != nil:
		lines = append(lines, renderStatusLine("Daemon", statusError, err.Error(), colorize))
	case running:
		detail := "Running"
		if _, pid, _ := daemonctl.ProcessInfo(cfg); pid > 0 {
			detail = fmt.Sprintf("Running (pid %d)", pid)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	default:
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}

	lines = append(lines, renderStatusLine("Schedule", statusInfo, cfg.Scheduler.Schedule, colorize))
	lines = append(lines, renderStatusLine("Hotfolder", statusInfo, cfg.Paths.HotfolderDir, colorize))
	if cfg.Notifications.NtfyTopic != "" {
		lines = append(lines, renderStatusLine("Notifications", statusOK, cfg.Notifications.NtfyTopic, colorize))
	} else {
		lines = append(lines, renderStatusLine("Notifications", statusInfo, "Disabled", colorize))
	}
	if cfg.Metrics.Listen != "" {
		lines = append(lines, renderStatusLine("Metrics", statusInfo, "http://"+cfg.Metrics.Listen+"/metrics", colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
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
		lines = append(lines, renderStatusLine("Missing commands", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func renderEntryTable(statuses []ingest.EntryStatus) string {
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{
			status.Name,
			string(status.State),
			strconv.Itoa(status.Children),
			formatAge(status.MinAge),
			status.Detail,
		})
	}
	return renderTable(
		[]string{"Entry", "State", "Files", "Settled For", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func buildStepStatusRows(stats map[workunit.StepStatus]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for status := range stats {
		keys = append(keys, string(status))
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, strconv.Itoa(stats[workunit.StepStatus(key)])})
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

func daemonLaunchOptions(ctx *commandContext, logLevel string) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{
		ConfigPath: ctx.configPath(),
		LogLevel:   logLevel,
	}
}
