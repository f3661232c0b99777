package daemonctl

import (
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"hotfolder/internal/testsupport"
)

func TestProcessInfoReadsLockAndPID(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	running, pid, err := ProcessInfo(cfg)
	if err != nil || running || pid != 0 {
		t.Fatalf("expected idle daemon, got running=%v pid=%d err=%v", running, pid, err)
	}

	lock := flock.New(cfg.DaemonLockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()
	if err := os.WriteFile(cfg.PIDPath(), []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	running, pid, err = ProcessInfo(cfg)
	if err != nil || !running || pid != 4242 {
		t.Fatalf("expected running daemon with pid 4242, got running=%v pid=%d err=%v", running, pid, err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := Stop(cfg, time.Second); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestStopRefusesSelf(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock := flock.New(cfg.DaemonLockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()
	if err := os.WriteFile(cfg.PIDPath(), []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := Stop(cfg, time.Second); err == nil {
		t.Fatal("expected refusal to signal the current process")
	}
}

func TestReadPIDRejectsGarbage(t *testing.T) {
	path := t.TempDir() + "/hotfolder.pid"
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readPID(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch(" ", LaunchOptions{}); err == nil {
		t.Fatal("expected error for empty executable")
	}
}
