package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"

	"hotfolder/internal/config"
	"hotfolder/internal/logging"
	"hotfolder/internal/notifications"
	"hotfolder/internal/scheduler"
	"hotfolder/internal/workunit"
)

// Daemon coordinates background polling and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *workunit.Store
	scheduler *scheduler.Scheduler
	runner    *workunit.Runner
	logPath   string

	lockPath string
	lock     *flock.Flock

	metrics http.Handler
	api     *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Scheduler    scheduler.Status
	Steps        map[workunit.StepStatus]int
	DBPath       string
	LockFilePath string
	LogPath      string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *workunit.Store, logger *slog.Logger, sched *scheduler.Scheduler, runner *workunit.Runner, logPath string) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || sched == nil {
		return nil, errors.New("daemon requires config, store, logger, and scheduler")
	}

	lockPath := cfg.DaemonLockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		scheduler: sched,
		runner:    runner,
		logPath:   logPath,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// SetMetricsHandler mounts h at /metrics on the listener configured by
// metrics.listen. It must be called before Start.
func (d *Daemon) SetMetricsHandler(h http.Handler) {
	d.metrics = h
}

// APIAddr returns the address the HTTP listener is bound to, or "" when it
// is disabled or the daemon is not running.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Start acquires the daemon lock and arms the poll scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hotfolder daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	api := newAPIServer(d.cfg.Metrics.Listen, d, d.metrics)
	if err := api.start(d.ctx); err != nil {
		d.abortStart()
		return err
	}
	if err := d.scheduler.Start(d.ctx); err != nil {
		api.stop()
		d.abortStart()
		return fmt.Errorf("start scheduler: %w", err)
	}
	d.api = api

	d.running.Store(true)
	d.logger.Info("hotfolder daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("hotfolder", d.cfg.Paths.HotfolderDir),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop stops polling and releases the daemon lock. Running step scripts keep
// going until Close.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.running.Store(false)
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.logger.Info("hotfolder daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon, interrupts running step scripts and closes the
// store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.runner != nil {
		d.runner.Close()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	return SendTestNotification(ctx, d.cfg)
}

// SendTestNotification publishes a test event when a topic is configured.
func SendTestNotification(ctx context.Context, cfg *config.Config) (bool, string, error) {
	if cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		Scheduler:    d.scheduler.Status(),
		DBPath:       d.store.Path(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if stats, err := d.store.StepStats(ctx); err == nil {
		status.Steps = stats
	} else {
		d.logger.Debug("step stats unavailable", logging.Error(err))
	}
	return status
}

// IsRunning probes the daemon lock from another process. It reports true
// when some process currently holds it.
func IsRunning(cfg *config.Config) (bool, error) {
	if cfg == nil {
		return false, errors.New("configuration unavailable")
	}
	lock := flock.New(cfg.DaemonLockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}
