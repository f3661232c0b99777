package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotfolder/internal/logging"
	"hotfolder/internal/staging"
	"hotfolder/internal/testsupport"
	"hotfolder/internal/workunit"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := staging.CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldStagingDirectories(t *testing.T) {
	unitsDir := t.TempDir()
	images := filepath.Join(unitsDir, "7", "images")

	oldDir := filepath.Join(images, ".orig_book_tif.staging-1a2b3c4d")
	recentDir := filepath.Join(images, ".orig_book_tif.staging-5e6f7a8b")
	keptDir := filepath.Join(images, "orig_book_tif")
	for _, dir := range []string{oldDir, recentDir, keptDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	for _, dir := range []string{oldDir, keptDir} {
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	result := staging.CleanStale(context.Background(), unitsDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old staging directory should have been removed")
	}
	for _, dir := range []string{recentDir, keptDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("%s should still exist: %v", dir, err)
		}
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	unitsDir := t.TempDir()
	path := filepath.Join(unitsDir, "3", "images", ".note.staging-file")
	testsupport.WriteFile(t, path, 16)
	testsupport.Backdate(t, path, 2*time.Hour)

	result := staging.CleanStale(context.Background(), unitsDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals for files, got %v", result.Removed)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("file should not have been removed: %v", err)
	}
}

func TestCleanOrphanedDeletesUnprovisionedUnits(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	template := testsupport.MustImportTemplate(t, store, testsupport.BasicTemplate("true"))

	pending := workunit.Clone(template, "crashed_ScannerA")
	if err := store.Save(ctx, pending); err != nil {
		t.Fatalf("save pending: %v", err)
	}
	ready := workunit.Clone(template, "done_ScannerA")
	ready.Provisioned = true
	if err := store.Save(ctx, ready); err != nil {
		t.Fatalf("save ready: %v", err)
	}

	// A generous grace period keeps a unit that is still being provisioned.
	if result := staging.CleanOrphaned(ctx, store, time.Hour, logging.NewNop()); len(result.Removed) != 0 {
		t.Fatalf("expected nothing removed inside the grace period, got %v", result.Removed)
	}

	result := staging.CleanOrphaned(ctx, store, 0, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != "crashed_ScannerA" {
		t.Fatalf("expected pending unit removed, got %v", result.Removed)
	}

	if got, err := store.Get(ctx, pending.ID); err != nil || got != nil {
		t.Fatalf("expected pending unit gone, got %v err=%v", got, err)
	}
	for _, id := range []int64{ready.ID, template.ID} {
		if got, err := store.Get(ctx, id); err != nil || got == nil {
			t.Fatalf("expected unit %d kept, got %v err=%v", id, got, err)
		}
	}
}
