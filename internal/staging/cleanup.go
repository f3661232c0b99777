package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hotfolder/internal/logging"
	"hotfolder/internal/workunit"
)

// stagingPattern matches relocation staging folders inside a unit's images
// directory: <units>/<id>/images/.<name>.staging-<suffix>.
const stagingPattern = ".*.staging-*"

// CleanResult contains the outcome of a cleanup sweep.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes relocation staging folders under unitsDir older than
// maxAge.
func CleanStale(ctx context.Context, unitsDir string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}

	unitsDir = strings.TrimSpace(unitsDir)
	if unitsDir == "" {
		return result
	}

	matches, err := filepath.Glob(filepath.Join(unitsDir, "*", "images", stagingPattern))
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: unitsDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, dirPath := range matches {
		if ctx.Err() != nil {
			return result
		}
		info, err := os.Lstat(dirPath)
		if err != nil {
			if !os.IsNotExist(err) {
				result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			}
			continue
		}
		if !info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dirPath); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			warnCleanup(logger, "failed to remove stale staging directory", dirPath, err)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale staging directory",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}
	return result
}

// UnitPruner is the subset of the work unit store CleanOrphaned needs.
type UnitPruner interface {
	List(ctx context.Context, opts workunit.ListOptions) ([]*workunit.Unit, error)
	Delete(ctx context.Context, id int64) error
}

// CleanOrphaned deletes unprovisioned, non-template units whose last update is older
// than maxAge. Provisioning only leaves such units behind when the process
// died before it could roll back.
func CleanOrphaned(ctx context.Context, store UnitPruner, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if store == nil {
		return result
	}

	units, err := store.List(ctx, workunit.ListOptions{IncludePending: true})
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: "units", Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, unit := range units {
		if unit.Provisioned || unit.IsTemplate || unit.UpdatedAt.After(cutoff) {
			continue
		}
		label := unit.Title
		if err := store.Delete(ctx, unit.ID); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: label, Error: err})
			warnCleanup(logger, "failed to delete orphaned work unit", label, err)
			continue
		}
		result.Removed = append(result.Removed, label)
		if logger != nil {
			logger.Info("deleted orphaned work unit",
				logging.Int64(logging.FieldUnitID, unit.ID),
				logging.String("title", unit.Title),
				logging.String(logging.FieldEventType, "orphan_cleanup"),
			)
		}
	}
	return result
}

func warnCleanup(logger *slog.Logger, msg, path string, err error) {
	if logger == nil {
		return
	}
	logger.Warn(msg,
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldEventType, "staging_cleanup_failed"),
		logging.String(logging.FieldErrorHint, "check units_dir permissions"),
		logging.String(logging.FieldImpact, "disk space not reclaimed"),
	)
}
