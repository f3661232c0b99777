package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"hotfolder/internal/testsupport"
)

func TestPollIngestsSettledBatch(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"template", "import", writeTemplateFile(t, env.baseDir)}, env.configPath)
	if err != nil {
		t.Fatalf("template import: %v", err)
	}
	requireContains(t, out, "as id 1")

	testsupport.MakeBatch(t, env.cfg.Paths.HotfolderDir, "140210016_ScannerA", 10*time.Minute, "a.tif", "b.tif")
	testsupport.MakeBatch(t, env.cfg.Paths.HotfolderDir, "999_ScannerB", 10*time.Minute, "c.tif")

	out, _, err = runCLI(t, []string{"poll"}, env.configPath)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	requireContains(t, out, "140210016_ScannerA")
	requireContains(t, out, "ingested")
	requireContains(t, out, "quarantined")
	requireContains(t, out, "1 ingested, 1 quarantined")

	if _, err := os.Stat(filepath.Join(env.cfg.Paths.HotfolderDir, "140210016_ScannerA")); !os.IsNotExist(err) {
		t.Fatalf("expected ingested batch to be removed, stat err=%v", err)
	}

	out, _, err = runCLI(t, []string{"units", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("units list: %v", err)
	}
	requireContains(t, out, "140210016_ScannerA")
	requireContains(t, out, "provisioned")

	out, _, err = runCLI(t, []string{"units", "show", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("units show: %v", err)
	}
	requireContains(t, out, "Listed:    no")
	requireContains(t, out, "Quality control")
	requireContains(t, out, "unit_created")

	out, _, err = runCLI(t, []string{"quarantine", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("quarantine list: %v", err)
	}
	requireContains(t, out, "999_ScannerB")

	out, _, err = runCLI(t, []string{"release", "999_ScannerB"}, env.configPath)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	requireContains(t, out, "Released 999_ScannerB")

	out, _, err = runCLI(t, []string{"quarantine", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("quarantine list: %v", err)
	}
	requireContains(t, out, "No quarantined entries")
}

func TestPollEmptyHotfolder(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"poll"}, env.configPath)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	requireContains(t, out, "hotfolder is empty")
}

func TestPollRefusesWhileCycleLocked(t *testing.T) {
	env := setupCLITestEnv(t)

	lock := flock.New(env.cfg.CycleLockPath())
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	out, _, err := runCLI(t, []string{"poll"}, env.configPath)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	requireContains(t, out, "already running")
}

func TestReleaseRejectsPaths(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, name := range []string{"../etc", "..", "missing"} {
		if _, _, err := runCLI(t, []string{"release", name}, env.configPath); err == nil {
			t.Fatalf("expected release %q to fail", name)
		}
	}

	testsupport.MakeBatch(t, env.cfg.Paths.HotfolderDir, "140210016_ScannerA", time.Minute, "a.tif")
	out, _, err := runCLI(t, []string{"release", "140210016_ScannerA"}, env.configPath)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if !strings.Contains(out, "not quarantined") {
		t.Fatalf("expected not quarantined message, got %q", out)
	}
}
