package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hotfolder/internal/config"
	"hotfolder/internal/ingest"
	"hotfolder/internal/logging"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (ingest.CycleReport, error)
}

// CycleObserver receives the outcome of every cycle the scheduler ran.
type CycleObserver interface {
	ObserveCycle(report ingest.CycleReport, err error)
}

// Scheduler invokes a CycleRunner on the configured schedule.
type Scheduler struct {
	runner     CycleRunner
	schedule   cron.Schedule
	spec       string
	startDelay time.Duration
	lockPath   string
	logger     *slog.Logger
	observer   CycleObserver

	mu       sync.Mutex
	cron     *cron.Cron
	cancel   context.CancelFunc
	done     chan struct{}
	last     *ingest.CycleReport
	lastRun  time.Time
	lastErr  error
	running  bool
	cycleCnt int
}

// Status is a snapshot of scheduler activity.
type Status struct {
	Running    bool
	Schedule   string
	NextRun    time.Time
	LastRun    time.Time
	LastReport *ingest.CycleReport
	LastError  error
	Cycles     int
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a cron expression or @every/@hourly descriptor.
func ParseSchedule(spec string) (cron.Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("schedule must not be empty")
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// New builds a scheduler from cfg.
func New(cfg *config.Config, runner CycleRunner, logger *slog.Logger) (*Scheduler, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("scheduler requires config and cycle runner")
	}
	schedule, err := ParseSchedule(cfg.Scheduler.Schedule)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		runner:     runner,
		schedule:   schedule,
		spec:       strings.TrimSpace(cfg.Scheduler.Schedule),
		startDelay: cfg.StartDelay(),
		lockPath:   cfg.CycleLockPath(),
		logger:     logging.NewComponentLogger(logger, "scheduler"),
	}, nil
}

// SetObserver registers o to be told about each completed cycle. It must be
// called before Start.
func (s *Scheduler) SetObserver(o CycleObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// Start arms the trigger. The first cycle runs after the start delay; later
// cycles follow the schedule. Cycles run with a context derived from ctx;
// cancelling it stops the cycle once the entry in progress has finished.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() { s.trigger(runCtx) }))

	s.cron = c
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	done := s.done
	delay := s.startDelay
	go func() {
		defer close(done)
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-runCtx.Done():
				return
			case <-timer.C:
			}
		}
		// The chain is applied to scheduled jobs only; run the first cycle
		// through the same recovery.
		cron.NewChain(cron.Recover(cl)).Then(cron.FuncJob(func() { s.trigger(runCtx) })).Run()
		if runCtx.Err() == nil {
			c.Start()
		}
	}()

	s.logger.Info("scheduler started",
		logging.String(logging.FieldEventType, "scheduler_started"),
		logging.String("schedule", s.spec),
		logging.Duration("start_delay", delay),
	)
	return nil
}

// Stop cancels the running cycle, if any, and waits for it to return. A
// claimed entry still finishes first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, c, done := s.cancel, s.cron, s.done
	s.mu.Unlock()

	cancel()
	<-done
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped", logging.String(logging.FieldEventType, "scheduler_stopped"))
}

// Status returns a snapshot of scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:    s.running,
		Schedule:   s.spec,
		LastRun:    s.lastRun,
		LastReport: s.last,
		LastError:  s.lastErr,
		Cycles:     s.cycleCnt,
	}
	if s.running {
		status.NextRun = s.schedule.Next(time.Now())
	}
	return status
}

func (s *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	var report ingest.CycleReport
	err := WithCycleLock(s.lockPath, func() error {
		var runErr error
		report, runErr = s.runner.RunCycle(ctx)
		return runErr
	})
	if errors.Is(err, ErrCycleInProgress) {
		s.logger.Info("poll cycle skipped; another cycle holds the lock",
			logging.String(logging.FieldEventType, "cycle_lock_busy"),
			logging.String("lock", s.lockPath),
		)
		return
	}

	s.mu.Lock()
	s.cycleCnt++
	s.lastRun = time.Now()
	s.lastErr = err
	if report.CycleID != "" {
		s.last = &report
	}
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer.ObserveCycle(report, err)
	}
}
