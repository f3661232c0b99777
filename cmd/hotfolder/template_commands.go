package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"hotfolder/internal/config"
	"hotfolder/internal/workunit"
)

func newTemplateCommand(ctx *commandContext) *cobra.Command {
	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Manage work unit templates",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a template definition (TOML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open template: %w", err)
			}
			defer file.Close()
			return ctx.withStore(func(cfg *config.Config, store *workunit.Store) error {
				unit, err := store.ImportTemplate(cmd.Context(), file)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Imported template %q as id %d (%d steps)\n", unit.Title, unit.ID, len(unit.Steps))
				if cfg.Workflow.TemplateID != unit.ID {
					fmt.Fprintf(stdout, "Set workflow.template_id = %d to provision new units from it\n", unit.ID)
				}
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List imported templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *workunit.Store) error {
				templates, err := store.List(cmd.Context(), workunit.ListOptions{Templates: true, IncludePending: true})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(templates) == 0 {
					fmt.Fprintln(stdout, "No templates imported")
					return nil
				}
				rows := make([][]string, 0, len(templates))
				for _, tmpl := range templates {
					rows = append(rows, []string{
						strconv.FormatInt(tmpl.ID, 10),
						tmpl.Title,
						strconv.Itoa(len(tmpl.Steps)),
						yesNo(tmpl.ID == cfg.Workflow.TemplateID),
					})
				}
				fmt.Fprint(stdout, renderTable([]string{"ID", "Title", "Steps", "Active"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}))
				return nil
			})
		},
	}

	sampleCmd := &cobra.Command{
		Use:         "sample",
		Short:       "Print an annotated template definition",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), workunit.SampleTemplate())
			return nil
		},
	}

	templateCmd.AddCommand(importCmd, listCmd, sampleCmd)
	return templateCmd
}
