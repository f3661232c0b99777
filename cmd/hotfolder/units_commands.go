package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hotfolder/internal/config"
	"hotfolder/internal/workunit"
)

func newUnitsCommand(ctx *commandContext) *cobra.Command {
	unitsCmd := &cobra.Command{
		Use:   "units",
		Short: "Inspect work units",
	}

	var limit int
	var includePending bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List work units",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *workunit.Store) error {
				units, err := store.List(cmd.Context(), workunit.ListOptions{IncludePending: includePending, Limit: limit})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(units) == 0 {
					fmt.Fprintln(stdout, "No work units")
					return nil
				}
				fmt.Fprint(stdout, renderUnitTable(units))
				return nil
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of units to show")
	listCmd.Flags().BoolVar(&includePending, "all", false, "Include units whose provisioning has not finished")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work unit with its steps, properties, and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid unit id %q", args[0])
			}
			return ctx.withStore(func(_ *config.Config, store *workunit.Store) error {
				unit, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if unit == nil {
					return fmt.Errorf("unit %d: %w", id, workunit.ErrUnitNotFound)
				}
				history, err := store.History(cmd.Context(), id)
				if err != nil {
					return err
				}
				renderUnitDetail(cmd.OutOrStdout(), store, unit, history)
				return nil
			})
		},
	}

	unitsCmd.AddCommand(listCmd, showCmd)
	return unitsCmd
}

func renderUnitTable(units []*workunit.Unit) string {
	rows := make([][]string, 0, len(units))
	for _, unit := range units {
		rows = append(rows, []string{
			strconv.FormatInt(unit.ID, 10),
			unit.Title,
			strconv.FormatInt(unit.SourceTemplateID, 10),
			stepProgress(unit),
			unitState(unit),
			formatTimestamp(unit.CreatedAt),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Template", "Steps", "State", "Created"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
	)
}

func unitState(unit *workunit.Unit) string {
	if unit.Provisioned {
		return "provisioned"
	}
	return "pending"
}

// stepProgress renders "done/total" plus any steps in error.
func stepProgress(unit *workunit.Unit) string {
	summary := unit.StepSummary()
	progress := fmt.Sprintf("%d/%d", summary[workunit.StepDone], len(unit.Steps))
	if failed := summary[workunit.StepError]; failed > 0 {
		progress += fmt.Sprintf(" (%d error)", failed)
	}
	return progress
}

func renderUnitDetail(out io.Writer, store *workunit.Store, unit *workunit.Unit, history []workunit.HistoryEvent) {
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(fmt.Sprintf("Unit %d", unit.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Title:     %s\n", unit.Title)
	fmt.Fprintf(out, "Template:  %d\n", unit.SourceTemplateID)
	fmt.Fprintf(out, "State:     %s\n", unitState(unit))
	fmt.Fprintf(out, "Listed:    %s\n", yesNo(unit.Visible))
	fmt.Fprintf(out, "Created:   %s\n", formatTimestamp(unit.CreatedAt))
	fmt.Fprintf(out, "Images:    %s\n", store.ImagesTifDir(unit))
	fmt.Fprintln(out)

	stepRows := make([][]string, 0, len(unit.Steps))
	for _, step := range unit.Steps {
		stepRows = append(stepRows, []string{
			strconv.Itoa(step.Ordinal),
			step.Title,
			string(step.Status),
			yesNo(step.Automatic),
			step.User,
		})
	}
	fmt.Fprint(out, renderTable([]string{"#", "Step", "Status", "Automatic", "User"}, stepRows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))

	if len(unit.Properties) > 0 {
		propRows := make([][]string, 0, len(unit.Properties))
		for _, prop := range unit.Properties {
			propRows = append(propRows, []string{string(prop.Kind), prop.Name, prop.Value})
		}
		fmt.Fprint(out, renderTable([]string{"Kind", "Property", "Value"}, propRows, nil))
	}

	if len(history) > 0 {
		historyRows := make([][]string, 0, len(history))
		for _, event := range history {
			historyRows = append(historyRows, []string{formatTimestamp(event.At), event.Kind, event.Detail})
		}
		fmt.Fprint(out, renderTable([]string{"At", "Event", "Detail"}, historyRows, nil))
	}
}
