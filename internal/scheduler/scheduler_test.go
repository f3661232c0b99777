package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"hotfolder/internal/ingest"
	"hotfolder/internal/scheduler"
	"hotfolder/internal/testsupport"
)

type countingRunner struct {
	calls atomic.Int32
	panic bool
}

func (r *countingRunner) RunCycle(ctx context.Context) (ingest.CycleReport, error) {
	n := r.calls.Add(1)
	if r.panic && n == 1 {
		panic("boom")
	}
	return ingest.CycleReport{CycleID: "cycle", Started: time.Now(), Finished: time.Now()}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestParseSchedule(t *testing.T) {
	valid := []string{"@every 1m", "*/5 * * * *", "@hourly"}
	for _, spec := range valid {
		if _, err := scheduler.ParseSchedule(spec); err != nil {
			t.Fatalf("ParseSchedule(%q): %v", spec, err)
		}
	}
	for _, spec := range []string{"", "every minute", "@every -", "0 */2 * * * *"} {
		if _, err := scheduler.ParseSchedule(spec); err == nil {
			t.Fatalf("expected error for %q", spec)
		}
	}
}

func TestSchedulerRunsFirstCycleAndRecordsStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.Schedule = "@every 1h"
	runner := &countingRunner{}
	sched, err := scheduler.New(cfg, runner, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(sched.Stop)

	waitFor(t, func() bool { return sched.Status().Cycles == 1 })
	status := sched.Status()
	if !status.Running || status.LastReport == nil || status.LastReport.CycleID != "cycle" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.NextRun.IsZero() {
		t.Fatal("expected next run to be computed")
	}
	if err := sched.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

type recordingObserver struct {
	cycles atomic.Int32
	lastID atomic.Value
}

func (o *recordingObserver) ObserveCycle(report ingest.CycleReport, err error) {
	o.lastID.Store(report.CycleID)
	o.cycles.Add(1)
}

func TestSchedulerNotifiesObserver(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.Schedule = "@every 1h"
	sched, err := scheduler.New(cfg, &countingRunner{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	observer := &recordingObserver{}
	sched.SetObserver(observer)
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(sched.Stop)

	waitFor(t, func() bool { return observer.cycles.Load() == 1 })
	if id, _ := observer.lastID.Load().(string); id != "cycle" {
		t.Fatalf("observer saw cycle %q", id)
	}
}

func TestSchedulerRecoversPanics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.Schedule = "@every 1s"
	runner := &countingRunner{panic: true}
	sched, err := scheduler.New(cfg, runner, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, func() bool { return runner.calls.Load() >= 2 })
	sched.Stop()
	if sched.Status().Running {
		t.Fatal("expected scheduler to be stopped")
	}
}

func TestSchedulerHonoursStartDelay(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.StartDelaySeconds = 3600
	runner := &countingRunner{}
	sched, err := scheduler.New(cfg, runner, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sched.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	sched.Stop()
	if runner.calls.Load() != 0 {
		t.Fatalf("expected no cycle before the start delay, got %d", runner.calls.Load())
	}
}

func TestWithCycleLockRejectsConcurrentHolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := cfg.CycleLockPath()

	err := scheduler.WithCycleLock(path, func() error {
		inner := scheduler.WithCycleLock(path, func() error {
			t.Fatal("inner function must not run while the lock is held")
			return nil
		})
		if !errors.Is(inner, scheduler.ErrCycleInProgress) {
			t.Fatalf("expected ErrCycleInProgress, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithCycleLock: %v", err)
	}

	ran := false
	if err := scheduler.WithCycleLock(path, func() error { ran = true; return nil }); err != nil || !ran {
		t.Fatalf("expected lock to be reusable: ran=%v err=%v", ran, err)
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scheduler.Schedule = "not a schedule"
	if _, err := scheduler.New(cfg, &countingRunner{}, nil); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
