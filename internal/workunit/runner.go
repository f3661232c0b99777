package workunit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"hotfolder/internal/logging"
)

// ErrStepNotOpen is returned by Start when the step is not (or no longer) open.
var ErrStepNotOpen = errors.New("step is not open")

const scriptOutputLimit = 2048

// scriptWaitDelay bounds how long a killed script may hold its output pipes.
const scriptWaitDelay = 2 * time.Second

// RunnerOptions configures step execution.
type RunnerOptions struct {
	Shell   string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Runner executes automatic step scripts in the background. Start returns as
// soon as the step is marked in work; the script runs on its own goroutine
// and, on success, opens the next locked step, starting it too when it is
// automatic.
type Runner struct {
	store   *Store
	shell   string
	timeout time.Duration
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner builds a runner bound to store.
func NewRunner(store *Store, opts RunnerOptions) *Runner {
	shell := strings.TrimSpace(opts.Shell)
	if shell == "" {
		shell = "/bin/sh"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:   store,
		shell:   shell,
		timeout: opts.Timeout,
		logger:  logging.NewComponentLogger(logger, "step-runner"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start marks step in work and runs it asynchronously. Scripts outlive the
// caller's context; only Close interrupts them.
func (r *Runner) Start(ctx context.Context, step Step) error {
	ok, err := r.store.TransitionStep(ctx, step.ID, StepOpen, StepInWork, EditAutomatic)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("start step %d (%s): %w", step.ID, step.Title, ErrStepNotOpen)
	}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.Int64(logging.FieldUnitID, step.UnitID),
		logging.String("step", step.Title),
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(logger, step)
	}()
	return nil
}

// Wait blocks until every started step, including chained ones, finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close interrupts running scripts and waits for their goroutines. An
// interrupted step is recorded as failed.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) run(logger *slog.Logger, step Step) {
	// Bookkeeping outlives Close so an interrupted step never stays in work.
	ctx := context.WithoutCancel(r.ctx)
	started := time.Now()
	logger.Info("step started", logging.String(logging.FieldEventType, "step_start"))
	if err := r.store.AppendHistory(ctx, step.UnitID, HistoryStepStarted, step.Title); err != nil {
		logger.Warn("record step start failed", logging.Error(err))
	}

	output, runErr := r.execute(r.ctx, step)
	if runErr != nil {
		r.fail(ctx, logger, step, runErr, output)
		return
	}

	if _, err := r.store.TransitionStep(ctx, step.ID, StepInWork, StepDone, EditAutomatic); err != nil {
		logger.Error("persist step completion failed", logging.Error(err))
		return
	}
	if err := r.store.AppendHistory(ctx, step.UnitID, HistoryStepDone, step.Title); err != nil {
		logger.Warn("record step completion failed", logging.Error(err))
	}
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("duration", time.Since(started)),
	)

	r.openNext(ctx, logger, step)
}

func (r *Runner) execute(ctx context.Context, step Step) (string, error) {
	script := strings.TrimSpace(step.Script)
	if script == "" {
		return "", nil
	}
	dir := r.store.UnitDir(step.UnitID)
	if dir == "" {
		return "", errors.New("unit directory unavailable")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create unit directory: %w", err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	env := append(os.Environ(),
		"HOTFOLDER_UNIT_ID="+strconv.FormatInt(step.UnitID, 10),
		"HOTFOLDER_UNIT_DIR="+dir,
		"HOTFOLDER_STEP_ID="+strconv.FormatInt(step.ID, 10),
		"HOTFOLDER_STEP_TITLE="+step.Title,
	)
	if unit, err := r.store.Get(ctx, step.UnitID); err == nil && unit != nil {
		env = append(env,
			"HOTFOLDER_UNIT_TITLE="+unit.Title,
			"HOTFOLDER_IMAGES_DIR="+r.store.ImagesDir(unit),
			"HOTFOLDER_ORIG_DIR="+r.store.ImagesOrigDir(unit),
		)
	}

	cmd := exec.CommandContext(ctx, r.shell, "-c", script)
	cmd.Dir = dir
	cmd.Env = env
	// Scripts get their own process group so cancellation reaches anything
	// they spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = scriptWaitDelay
	out, err := cmd.CombinedOutput()
	output := tail(string(out), scriptOutputLimit)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return output, fmt.Errorf("script timed out after %s: %w", r.timeout, err)
		case r.ctx.Err() != nil:
			return output, fmt.Errorf("script interrupted by shutdown: %w", err)
		}
		return output, fmt.Errorf("script failed: %w", err)
	}
	return output, nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, step Step, runErr error, output string) {
	if _, err := r.store.TransitionStep(ctx, step.ID, StepInWork, StepError, EditAutomatic); err != nil {
		logger.Error("persist step failure failed", logging.Error(err))
	}
	detail := step.Title + ": " + runErr.Error()
	if err := r.store.AppendHistory(ctx, step.UnitID, HistoryStepError, detail); err != nil {
		logger.Warn("record step failure failed", logging.Error(err))
	}
	logging.ErrorWithContext(logger, "step failed", "step_failure",
		logging.Error(runErr),
		logging.String("script_output", output),
		logging.String(logging.FieldErrorHint, "inspect the step script output and reset the step"),
	)
}

func (r *Runner) openNext(ctx context.Context, logger *slog.Logger, step Step) {
	next, err := r.store.NextLockedStep(ctx, step.UnitID, step.Ordinal)
	if err != nil {
		logger.Error("load next step failed", logging.Error(err))
		return
	}
	if next == nil {
		return
	}
	ok, err := r.store.TransitionStep(ctx, next.ID, StepLocked, StepOpen, EditAutomatic)
	if err != nil || !ok {
		if err != nil {
			logger.Error("open next step failed", logging.Error(err))
		}
		return
	}
	if err := r.store.AppendHistory(ctx, next.UnitID, HistoryStepOpened, next.Title); err != nil {
		logger.Warn("record step open failed", logging.Error(err))
	}
	if !next.Automatic {
		return
	}
	if r.ctx.Err() != nil {
		logger.Info("runner closed, chained step left open", logging.String("next_step", next.Title))
		return
	}
	next.Status = StepOpen
	if err := r.Start(ctx, *next); err != nil {
		logger.Warn("start chained step failed", logging.Error(err))
	}
}

func tail(value string, limit int) string {
	value = strings.TrimSpace(value)
	if len(value) <= limit {
		return value
	}
	return "…" + value[len(value)-limit:]
}
