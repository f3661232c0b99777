package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte('A' + i%26)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Backdate sets both access and modification time of path to now-age.
func Backdate(t testing.TB, path string, age time.Duration) {
	t.Helper()
	ts := time.Now().Add(-age)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

// MakeBatch creates root/name with the given files and backdates the files and
// the folder itself by age, emulating a scanner upload that finished age ago.
func MakeBatch(t testing.TB, root, name string, age time.Duration, files ...string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir batch %s: %v", dir, err)
	}
	for i, file := range files {
		path := filepath.Join(dir, file)
		WriteFile(t, path, int64(64*(i+1)))
		Backdate(t, path, age)
	}
	Backdate(t, dir, age)
	return dir
}
