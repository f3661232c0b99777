package hotfolder_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotfolder/internal/hotfolder"
	"hotfolder/internal/testsupport"
)

func TestIsSettled(t *testing.T) {
	quiet := 5 * time.Minute
	tests := []struct {
		name  string
		setup func(t *testing.T, root string) string
		want  bool
	}{
		{
			name: "old files settle",
			setup: func(t *testing.T, root string) string {
				return testsupport.MakeBatch(t, root, "old_batch", 10*time.Minute, "a.tif", "b.tif")
			},
			want: true,
		},
		{
			name: "empty folder never settles",
			setup: func(t *testing.T, root string) string {
				dir := filepath.Join(root, "empty_batch")
				if err := os.Mkdir(dir, 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
				testsupport.Backdate(t, dir, time.Hour)
				return dir
			},
			want: false,
		},
		{
			name: "fresh child keeps folder unsettled",
			setup: func(t *testing.T, root string) string {
				dir := testsupport.MakeBatch(t, root, "busy_batch", 10*time.Minute, "a.tif")
				testsupport.WriteFile(t, filepath.Join(dir, "b.tif"), 32)
				testsupport.Backdate(t, dir, 10*time.Minute)
				return dir
			},
			want: false,
		},
		{
			name: "fresh directory mtime keeps folder unsettled",
			setup: func(t *testing.T, root string) string {
				dir := testsupport.MakeBatch(t, root, "renamed_batch", 10*time.Minute, "a.tif")
				testsupport.Backdate(t, dir, time.Minute)
				return dir
			},
			want: false,
		},
		{
			name: "age just under quiet period",
			setup: func(t *testing.T, root string) string {
				return testsupport.MakeBatch(t, root, "edge_batch", quiet-time.Second, "a.tif")
			},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := tc.setup(t, t.TempDir())
			got, err := hotfolder.IsSettled(dir, time.Now(), quiet)
			if err != nil {
				t.Fatalf("IsSettled: %v", err)
			}
			if got != tc.want {
				t.Fatalf("IsSettled = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestObserveReportsNewestItem(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeBatch(t, root, "batch", time.Hour, "a.tif", "b.tif")
	testsupport.Backdate(t, filepath.Join(dir, "b.tif"), 2*time.Minute)

	obs, err := hotfolder.Observe(dir, time.Now())
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if obs.Children != 2 {
		t.Fatalf("expected 2 children, got %d", obs.Children)
	}
	if obs.Newest != "b.tif" {
		t.Fatalf("expected b.tif to be newest, got %q", obs.Newest)
	}
	if obs.MinAge < time.Minute || obs.MinAge > 3*time.Minute {
		t.Fatalf("unexpected min age %s", obs.MinAge)
	}
}

func TestObserveDoesNotRecurse(t *testing.T) {
	root := t.TempDir()
	dir := testsupport.MakeBatch(t, root, "batch", time.Hour, "a.tif")
	nested := filepath.Join(dir, "sub")
	testsupport.WriteFile(t, filepath.Join(nested, "fresh.tif"), 8)
	testsupport.Backdate(t, nested, time.Hour)
	testsupport.Backdate(t, dir, time.Hour)

	settled, err := hotfolder.IsSettled(dir, time.Now(), 5*time.Minute)
	if err != nil {
		t.Fatalf("IsSettled: %v", err)
	}
	if !settled {
		t.Fatal("expected nested file mtimes to be ignored")
	}
}

func TestObserveMissingDirectory(t *testing.T) {
	if _, err := hotfolder.Observe(filepath.Join(t.TempDir(), "missing"), time.Now()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
