package testsupport

import (
	"context"
	"strings"
	"testing"

	"hotfolder/internal/config"
	"hotfolder/internal/workunit"
)

// MustOpenStore opens a workunit.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *workunit.Store {
	t.Helper()

	store, err := workunit.Open(cfg)
	if err != nil {
		t.Fatalf("workunit.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustImportTemplate stores a template defined in TOML and returns it.
func MustImportTemplate(t testing.TB, store *workunit.Store, definition string) *workunit.Unit {
	t.Helper()

	unit, err := store.ImportTemplate(context.Background(), strings.NewReader(definition))
	if err != nil {
		t.Fatalf("ImportTemplate: %v", err)
	}
	return unit
}

// BasicTemplate is a three step template: a done scanning step, an open
// automatic step running script, and a locked manual step.
func BasicTemplate(script string) string {
	return `title = "Test template"

[[steps]]
title = "Scanning"
status = "done"

[[steps]]
title = "Import"
status = "open"
automatic = true
script = '` + script + `'

[[steps]]
title = "Quality control"

[[properties]]
kind = "template"
name = "Shelfmark"

[[properties]]
kind = "workpiece"
name = "Material"
value = "Print"
`
}
