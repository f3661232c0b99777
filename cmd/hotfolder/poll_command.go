package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hotfolder/internal/config"
	"hotfolder/internal/daemonrun"
	"hotfolder/internal/ingest"
	"hotfolder/internal/logging"
	"hotfolder/internal/scheduler"
	"hotfolder/internal/workunit"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var noWait bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run a single poll cycle now",
		Long: "Run one poll cycle against the hotfolder and print what happened to each entry.\n" +
			"The cycle lock is shared with the daemon, so poll refuses to run while a scheduled cycle is active.",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withStore(func(cfg *config.Config, store *workunit.Store) error {
				level := logLevel
				if level == "" {
					level = cfg.Logging.Level
				}
				logger, err := logging.New(logging.Options{
					Level:       level,
					Format:      cfg.Logging.Format,
					OutputPaths: []string{"stderr"},
				})
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}

				orch, runner, err := daemonrun.Build(cfg, store, logger)
				if err != nil {
					return err
				}
				defer runner.Close()

				var report ingest.CycleReport
				var cycleErr error
				lockErr := scheduler.WithCycleLock(cfg.CycleLockPath(), func() error {
					report, cycleErr = orch.RunCycle(cmd.Context())
					return nil
				})
				if errors.Is(lockErr, scheduler.ErrCycleInProgress) {
					fmt.Fprintln(stdout, "A poll cycle is already running")
					return nil
				}
				if lockErr != nil {
					return lockErr
				}

				printCycleReport(stdout, report)
				if !noWait {
					runner.Wait()
				}
				return cycleErr
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Do not wait for started steps to finish")
	return cmd
}

func printCycleReport(out io.Writer, report ingest.CycleReport) {
	if report.Skipped {
		fmt.Fprintf(out, "Cycle %s skipped: %v\n", report.CycleID, report.Err)
		return
	}
	if len(report.Entries) == 0 {
		fmt.Fprintf(out, "Cycle %s: hotfolder is empty\n", report.CycleID)
		return
	}

	rows := make([][]string, 0, len(report.Entries))
	for _, entry := range report.Entries {
		unit := "-"
		if entry.UnitID > 0 {
			unit = strconv.FormatInt(entry.UnitID, 10)
		}
		files := "-"
		if entry.Files > 0 {
			files = fmt.Sprintf("%d (%s)", entry.Files, humanize.IBytes(uint64(entry.Bytes)))
		}
		detail := entry.Reason
		if entry.Err != nil {
			detail = entry.Err.Error()
		}
		rows = append(rows, []string{entry.Entry, string(entry.Outcome), unit, files, detail})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Entry", "Outcome", "Unit", "Files", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "Cycle %s: %d ingested, %d quarantined, %d waiting in %s\n",
		report.CycleID,
		report.Count(ingest.OutcomeIngested),
		report.Count(ingest.OutcomeQuarantined),
		report.Count(ingest.OutcomeWaiting),
		report.Duration().Round(time.Millisecond),
	)
}
