package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"hotfolder/internal/hotfolder"
	"hotfolder/internal/ingest"
)

func newQuarantineCommand(ctx *commandContext) *cobra.Command {
	quarantineCmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Inspect quarantined hotfolder entries",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries that carry a claim marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statuses, err := ingest.Inspect(cfg, time.Now())
			if err != nil {
				return err
			}
			quarantined := ingest.Quarantined(statuses)
			stdout := cmd.OutOrStdout()
			if len(quarantined) == 0 {
				fmt.Fprintln(stdout, "No quarantined entries")
				return nil
			}
			rows := make([][]string, 0, len(quarantined))
			for _, status := range quarantined {
				rows = append(rows, []string{status.Name, formatTimestamp(status.ClaimedAt), status.Path})
			}
			fmt.Fprint(stdout, renderTable([]string{"Entry", "Claimed At", "Path"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
	quarantineCmd.AddCommand(listCmd)
	return quarantineCmd
}

func newReleaseCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "release [entry...]",
		Short: "Remove the claim marker so the next cycle retries an entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			marker := cfg.Hotfolder.ClaimMarker

			names := args
			if all {
				statuses, err := ingest.Inspect(cfg, time.Now())
				if err != nil {
					return err
				}
				names = names[:0:0]
				for _, status := range ingest.Quarantined(statuses) {
					names = append(names, status.Name)
				}
				if len(names) == 0 {
					fmt.Fprintln(stdout, "No quarantined entries")
					return nil
				}
			}
			if len(names) == 0 {
				return errors.New("specify at least one entry or --all")
			}

			for _, name := range names {
				dir, err := entryPath(cfg.Paths.HotfolderDir, name)
				if err != nil {
					return err
				}
				claimed, err := hotfolder.IsClaimed(dir, marker)
				if err != nil {
					return err
				}
				if !claimed {
					fmt.Fprintf(stdout, "%s is not quarantined\n", name)
					continue
				}
				if err := hotfolder.Release(dir, marker); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Released %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Release every quarantined entry")
	return cmd
}

// entryPath resolves an entry name to a direct child of the hotfolder.
func entryPath(root, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, filepath.Separator) || strings.Contains(name, "/") {
		return "", fmt.Errorf("invalid entry name %q", name)
	}
	dir := filepath.Join(root, name)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("entry %q not found in %s", name, root)
		}
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("entry %q is not a directory", name)
	}
	return dir, nil
}
