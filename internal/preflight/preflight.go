package preflight

import (
	"context"
	"fmt"
	"strings"

	"hotfolder/internal/config"
	"hotfolder/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks required before a poll cycle.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return []Result{{Name: "Context", Detail: err.Error()}}
	}

	results := []Result{
		CheckReadableDirectory("Hotfolder", cfg.Paths.HotfolderDir),
		CheckDirectoryAccess("Units directory", cfg.Paths.UnitsDir),
	}
	if cfg.Hotfolder.MinFreeMiB > 0 {
		results = append(results, CheckFreeSpace("Units free space", cfg.Paths.UnitsDir, uint64(cfg.Hotfolder.MinFreeMiB)<<20))
	}
	return results
}

// Err folds failed results into a configuration error, or returns nil when
// every check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "",
		fmt.Sprintf("%d check(s) failed: %s", len(failed), strings.Join(failed, "; ")), nil)
}
