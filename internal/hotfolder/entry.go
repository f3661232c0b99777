package hotfolder

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hotfolder/internal/services"
)

// Entry is one immediate subdirectory of the hotfolder.
type Entry struct {
	Name    string
	Path    string
	Claimed bool
}

// Scan lists the batch folders directly under root. Plain files and hidden
// names are ignored. Entries are returned sorted by name so cycles process
// batches in a stable order.
func Scan(root, marker string) ([]Entry, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "scan", "stat hotfolder", fmt.Sprintf("hotfolder %s does not exist", root), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "scan", "stat hotfolder", root, err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "stat hotfolder", fmt.Sprintf("hotfolder %s is not a directory", root), nil)
	}

	dirEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "read hotfolder", root, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(root, name)
		if !de.IsDir() {
			// Symlinked batch folders are followed.
			if de.Type()&fs.ModeSymlink == 0 {
				continue
			}
			target, err := os.Stat(path)
			if err != nil || !target.IsDir() {
				continue
			}
		}
		claimed, err := IsClaimed(path, marker)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Name: name, Path: path, Claimed: claimed})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ValidateLayout rejects batches containing nested directories; only a flat
// list of image files is ingestible.
func ValidateLayout(dir string) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		return services.Wrap(services.ErrTransient, "validate", "read entry", dir, err)
	}
	var nested []string
	for _, child := range children {
		if child.IsDir() {
			nested = append(nested, child.Name())
		}
	}
	if len(nested) > 0 {
		return services.Wrap(services.ErrValidation, "validate", "layout",
			fmt.Sprintf("batch %s contains nested directories (%s); expected image files only", filepath.Base(dir), strings.Join(nested, ", ")), nil)
	}
	return nil
}

// Remove deletes the batch folder, including its claim marker.
func Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}
