package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"hotfolder/internal/catalog"
	"hotfolder/internal/config"
	"hotfolder/internal/daemon"
	"hotfolder/internal/deps"
	"hotfolder/internal/ingest"
	"hotfolder/internal/logging"
	"hotfolder/internal/metrics"
	"hotfolder/internal/notifications"
	"hotfolder/internal/preflight"
	"hotfolder/internal/scheduler"
	"hotfolder/internal/staging"
	"hotfolder/internal/workunit"
)

// leftoverGracePeriod keeps the startup sweep away from anything a cycle that
// is still running could own.
const leftoverGracePeriod = time.Hour

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the hotfolder daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("hotfolder-%s.log", runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update hotfolder.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "hotfolder-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := workunit.Open(cfg)
	if err != nil {
		logger.Error("open work unit store", logging.Error(err))
		return err
	}

	logEnvironmentSnapshot(signalCtx, logger, cfg, store)

	orch, runner, err := Build(cfg, store, logger)
	if err != nil {
		store.Close()
		return err
	}
	sched, err := scheduler.New(cfg, orch, logger)
	if err != nil {
		runner.Close()
		store.Close()
		return fmt.Errorf("create scheduler: %w", err)
	}

	d, err := daemon.New(cfg, store, logger, sched, runner, logPath)
	if err != nil {
		runner.Close()
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if cfg.Metrics.Listen != "" {
		m := metrics.New()
		sched.SetObserver(m)
		d.SetMetricsHandler(m.Handler())
	}

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "stop the other instance or remove a stale lock file"),
		)
		return err
	}
	sweepLeftovers(signalCtx, cfg, store, logger)

	<-signalCtx.Done()
	logger.Info("hotfolder daemon shutting down")
	return nil
}

// Build wires an orchestrator and step runner around an open store. It is
// shared by the daemon and one-off `hotfolder poll` invocations.
func Build(cfg *config.Config, store *workunit.Store, logger *slog.Logger) (*ingest.Orchestrator, *workunit.Runner, error) {
	client, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithAPIKey(cfg.Catalog.APIKey),
		catalog.WithTimeout(cfg.CatalogTimeout()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create catalog client: %w", err)
	}
	runner := workunit.NewRunner(store, workunit.RunnerOptions{
		Shell:   cfg.Workflow.StepShell,
		Timeout: cfg.StepTimeout(),
		Logger:  logger,
	})
	orch, err := ingest.New(ingest.Options{
		Config:   cfg,
		Workflow: store,
		Catalog:  client,
		Steps:    runner,
		Notifier: notifications.NewService(cfg),
		Logger:   logger,
	})
	if err != nil {
		runner.Close()
		return nil, nil, err
	}
	return orch, runner, nil
}

// CurrentLogPath is the stable pointer to the log of the running (or last)
// daemon.
func CurrentLogPath(logDir string) string {
	return filepath.Join(logDir, "hotfolder.log")
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := CurrentLogPath(logDir)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logEnvironmentSnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config, store *workunit.Store) {
	if logger == nil || cfg == nil {
		return
	}
	results := preflight.RunAll(ctx, cfg)
	results = append(results, preflight.CheckCatalog(ctx, cfg.Catalog.BaseURL, cfg.Catalog.APIKey))

	template, err := store.Template(ctx, cfg.Workflow.TemplateID)
	if err != nil {
		results = append(results, preflight.Result{Name: "Template", Detail: err.Error()})
	} else {
		results = append(results, preflight.Result{Name: "Template", Passed: true, Detail: template.Title})
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg.Workflow.StepShell, template)) {
		results = append(results, preflight.Result{
			Name:   "Command " + status.Name,
			Passed: status.Available || status.Optional,
			Detail: status.Detail,
		})
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "environment_snapshot"),
		logging.String("hotfolder", cfg.Paths.HotfolderDir),
		logging.String("units_dir", cfg.Paths.UnitsDir),
		logging.Int64("template_id", cfg.Workflow.TemplateID),
		logging.String("schedule", cfg.Scheduler.Schedule),
		logging.Bool("notifications", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	}
	for _, r := range results {
		attrs = append(attrs, logging.Bool(checkKey(r.Name), r.Passed))
		if !r.Passed {
			logging.WarnWithContext(logger, "environment check failed", "environment_check_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldImpact, "ingestion may fail until this is fixed"),
			)
		}
	}
	logger.Info("environment snapshot", logging.Args(attrs...)...)
}

// sweepLeftovers removes staging folders and hidden units an interrupted
// earlier run left behind.
func sweepLeftovers(ctx context.Context, cfg *config.Config, store *workunit.Store, logger *slog.Logger) {
	stale := staging.CleanStale(ctx, cfg.Paths.UnitsDir, leftoverGracePeriod, logger)
	orphaned := staging.CleanOrphaned(ctx, store, leftoverGracePeriod, logger)
	if removed := len(stale.Removed) + len(orphaned.Removed); removed > 0 {
		logger.Info("removed leftovers of interrupted ingests",
			logging.Int("staging_dirs", len(stale.Removed)),
			logging.Int("units", len(orphaned.Removed)),
			logging.String(logging.FieldEventType, "leftover_cleanup"),
		)
	}
}

func checkKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_") + "_ok"
}
