package hotfolder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"hotfolder/internal/fileutil"
	"hotfolder/internal/services"
)

// NameFilter matches file names case-insensitively using Unicode case folding.
type NameFilter struct {
	names map[string]struct{}
}

// NewNameFilter builds a filter for the given names.
func NewNameFilter(names ...string) *NameFilter {
	f := &NameFilter{names: make(map[string]struct{}, len(names))}
	for _, name := range names {
		if name == "" {
			continue
		}
		f.names[fold(name)] = struct{}{}
	}
	return f
}

// Match reports whether name is one of the filtered names.
func (f *NameFilter) Match(name string) bool {
	if f == nil {
		return false
	}
	_, ok := f.names[fold(name)]
	return ok
}

func fold(name string) string {
	return cases.Fold().String(name)
}

// RelocateResult summarizes a finished relocation.
type RelocateResult struct {
	Files   []string
	Skipped []string
	Bytes   int64
}

// Relocate copies every direct child of src except filtered names into dest.
// Files are first copied and verified inside a hidden staging directory next
// to dest and only renamed into dest once all copies succeeded. A failed rename
// removes the files already committed. Existing files in dest that are not
// part of the batch are left untouched.
func Relocate(ctx context.Context, src, dest string, skip *NameFilter) (RelocateResult, error) {
	var result RelocateResult

	children, err := os.ReadDir(src)
	if err != nil {
		return result, services.Wrap(services.ErrRelocation, "relocate", "read source", src, err)
	}

	names := make([]string, 0, len(children))
	for _, child := range children {
		name := child.Name()
		if skip.Match(name) {
			result.Skipped = append(result.Skipped, name)
			continue
		}
		if child.IsDir() {
			return result, services.Wrap(services.ErrRelocation, "relocate", "read source",
				fmt.Sprintf("unexpected directory %s in batch", name), nil)
		}
		names = append(names, name)
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return result, services.Wrap(services.ErrRelocation, "relocate", "create destination", dest, err)
	}

	staging := filepath.Join(filepath.Dir(dest), "."+filepath.Base(dest)+".staging-"+uuid.NewString()[:8])
	if err := os.Mkdir(staging, 0o755); err != nil {
		return result, services.Wrap(services.ErrRelocation, "relocate", "create staging", staging, err)
	}
	defer os.RemoveAll(staging)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return result, services.Wrap(services.ErrRelocation, "relocate", "copy", "interrupted", err)
		}
		written, err := fileutil.CopyFileVerified(filepath.Join(src, name), filepath.Join(staging, name))
		if err != nil {
			return result, services.Wrap(services.ErrRelocation, "relocate", "copy", name, err)
		}
		result.Bytes += written
	}

	for _, name := range names {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(dest, name)); err != nil {
			err = errors.Join(err, rollback(dest, result.Files))
			result.Files = nil
			return result, services.Wrap(services.ErrRelocation, "relocate", "commit", name, err)
		}
		result.Files = append(result.Files, name)
	}
	return result, nil
}

// rollback removes files a failed commit already placed in dest. The source
// still holds every original, so a retry starts from a clean destination.
func rollback(dest string, committed []string) error {
	var errs []error
	for _, name := range committed {
		if err := os.Remove(filepath.Join(dest, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("roll back %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
