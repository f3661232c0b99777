package daemon_test

import (
	"context"
	"testing"
	"time"

	"hotfolder/internal/daemon"
	"hotfolder/internal/ingest"
	"hotfolder/internal/logging"
	"hotfolder/internal/scheduler"
	"hotfolder/internal/testsupport"
	"hotfolder/internal/workunit"
)

type idleRunner struct{}

func (idleRunner) RunCycle(context.Context) (ingest.CycleReport, error) {
	return ingest.CycleReport{}, nil
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.StartDelaySeconds = 3600
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	sched, err := scheduler.New(cfg, idleRunner{}, logger)
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	runner := workunit.NewRunner(store, workunit.RunnerOptions{})
	d, err := daemon.New(cfg, store, logger, sched, runner, "")
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.Scheduler.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.DBPath != cfg.DatabasePath() {
		t.Fatalf("unexpected db path %q", status.DBPath)
	}

	running, err := daemon.IsRunning(cfg)
	if err != nil || !running {
		t.Fatalf("expected lock probe to see the daemon: running=%v err=%v", running, err)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	running, err = daemon.IsRunning(cfg)
	if err != nil || running {
		t.Fatalf("expected lock to be released: running=%v err=%v", running, err)
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.StartDelaySeconds = 3600
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	build := func() *daemon.Daemon {
		sched, err := scheduler.New(cfg, idleRunner{}, logger)
		if err != nil {
			t.Fatalf("scheduler.New: %v", err)
		}
		d, err := daemon.New(cfg, store, logger, sched, nil, "")
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		return d
	}

	first := build()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second := build()
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
}

func TestSendTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ok, msg, err := daemon.SendTestNotification(context.Background(), cfg)
	if ok || err != nil || msg != "ntfy topic not configured" {
		t.Fatalf("unexpected result ok=%v msg=%q err=%v", ok, msg, err)
	}
}
