package ingest

import (
	"context"
	"errors"
	"log/slog"

	"hotfolder/internal/logging"
	"hotfolder/internal/workunit"
)

// Activator starts the automatic steps of a freshly provisioned unit.
type Activator struct {
	workflow WorkflowSystem
	starter  StepStarter
	logger   *slog.Logger
}

// NewActivator builds an activator. A nil starter disables activation.
func NewActivator(workflow WorkflowSystem, starter StepStarter, logger *slog.Logger) *Activator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Activator{workflow: workflow, starter: starter, logger: logger}
}

// Activate starts every open automatic step of unit without waiting for it.
// It returns how many steps were started; failures of individual steps are
// joined into the returned error and do not stop the others.
func (a *Activator) Activate(ctx context.Context, unit *workunit.Unit) (int, error) {
	if a.starter == nil || unit == nil {
		return 0, nil
	}
	steps, err := a.workflow.Steps(ctx, unit.ID)
	if err != nil {
		return 0, err
	}
	unit.Steps = steps

	logger := logging.WithContext(ctx, a.logger)
	started := 0
	var errs []error
	for _, step := range unit.AutomaticOpenSteps() {
		if err := a.starter.Start(ctx, step); err != nil {
			if errors.Is(err, workunit.ErrStepNotOpen) {
				logger.Debug("step no longer open", logging.String("step", step.Title))
				continue
			}
			errs = append(errs, err)
			continue
		}
		started++
	}
	return started, errors.Join(errs...)
}
