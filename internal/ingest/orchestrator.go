package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"hotfolder/internal/catalog"
	"hotfolder/internal/config"
	"hotfolder/internal/hotfolder"
	"hotfolder/internal/logging"
	"hotfolder/internal/notifications"
	"hotfolder/internal/preflight"
	"hotfolder/internal/services"
	"hotfolder/internal/workunit"
)

// Options wires an Orchestrator.
type Options struct {
	Config   *config.Config
	Workflow WorkflowSystem
	Catalog  CatalogResolver
	Steps    StepStarter
	Notifier notifications.Service
	Logger   *slog.Logger
	// Now overrides the clock used for stability checks and claims.
	Now func() time.Time
}

// Orchestrator runs poll cycles over the hotfolder.
type Orchestrator struct {
	cfg         *config.Config
	workflow    WorkflowSystem
	catalog     CatalogResolver
	provisioner *Provisioner
	activator   *Activator
	notifier    notifications.Service
	logger      *slog.Logger
	now         func() time.Time

	rules hotfolder.NameRules
	junk  *hotfolder.NameFilter
	host  string
}

// New validates opts and builds an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, errors.New("ingest: config is required")
	}
	if opts.Workflow == nil {
		return nil, errors.New("ingest: workflow system is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("ingest: catalog resolver is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ingest")
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	cfg := opts.Config
	junk := append([]string{cfg.Hotfolder.ClaimMarker}, cfg.Hotfolder.JunkNames...)
	provisioner := NewProvisioner(opts.Workflow, RulesFromConfig(cfg), logger)
	provisioner.now = now

	return &Orchestrator{
		cfg:         cfg,
		workflow:    opts.Workflow,
		catalog:     opts.Catalog,
		provisioner: provisioner,
		activator:   NewActivator(opts.Workflow, opts.Steps, logger),
		notifier:    notifier,
		logger:      logger,
		now:         now,
		rules: hotfolder.NameRules{
			Separator:   cfg.Hotfolder.Separator,
			Placeholder: cfg.Hotfolder.TitlePlaceholder,
		},
		junk: hotfolder.NewNameFilter(junk...),
		host: host,
	}, nil
}

// RunCycle examines every hotfolder entry once. Entries are processed one at
// a time. The configured cycle timeout only stops new entries from being
// started; an entry that got past its claim runs to completion unless ctx is
// cancelled. The returned error is non-nil only when the whole cycle was
// skipped.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.NewString(), Started: o.now()}
	ctx = services.WithCycleID(ctx, report.CycleID)
	logger := logging.WithContext(ctx, o.logger)
	logger.Debug("poll cycle started", logging.String(logging.FieldEventType, "cycle_start"))

	if err := preflight.Err(preflight.RunAll(ctx, o.cfg)); err != nil {
		return o.skipCycle(ctx, report, err), err
	}
	entries, err := hotfolder.Scan(o.cfg.Paths.HotfolderDir, o.cfg.Hotfolder.ClaimMarker)
	if err != nil {
		return o.skipCycle(ctx, report, err), err
	}

	var deadline time.Time
	if timeout := o.cfg.CycleTimeout(); timeout > 0 {
		deadline = report.Started.Add(timeout)
	}

	for _, entry := range entries {
		if ctx.Err() != nil || (!deadline.IsZero() && o.now().After(deadline)) {
			report.Entries = append(report.Entries, EntryReport{Entry: entry.Name, Outcome: OutcomeDeferred})
			continue
		}
		report.Entries = append(report.Entries, o.processEntry(ctx, entry))
	}

	report.Finished = o.now()
	o.logSummary(logger, report)
	return report, nil
}

func (o *Orchestrator) skipCycle(ctx context.Context, report CycleReport, err error) CycleReport {
	report.Skipped = true
	report.Err = err
	report.Finished = o.now()
	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "poll cycle skipped", "cycle_skipped",
		logging.Error(err),
		logging.Alert("cycle_skipped"),
	)
	o.publish(ctx, notifications.EventCycleSkipped, notifications.Payload{"error": err})
	return report
}

func (o *Orchestrator) processEntry(ctx context.Context, entry hotfolder.Entry) EntryReport {
	started := o.now()
	report := EntryReport{Entry: entry.Name}
	ctx = services.WithEntry(ctx, entry.Name)
	logger := logging.WithContext(ctx, o.logger)

	finish := func(r EntryReport) EntryReport {
		r.Duration = o.now().Sub(started)
		return r
	}

	if entry.Claimed {
		logger.Debug("entry already claimed", logging.String(logging.FieldEventType, "entry_skipped"))
		report.Outcome = OutcomeSkipped
		return finish(report)
	}

	obs, err := hotfolder.Observe(entry.Path, o.now())
	if err != nil {
		return finish(o.failEntry(logger, report, "settle", err))
	}
	if !obs.Settled(o.cfg.QuietPeriod()) {
		logger.Debug("entry not settled",
			logging.String(logging.FieldEventType, "entry_waiting"),
			logging.Int("children", obs.Children),
			logging.Duration("min_age", obs.MinAge),
			logging.String("newest", obs.Newest),
		)
		report.Outcome = OutcomeWaiting
		return finish(report)
	}

	parsed, invalid := hotfolder.ParseIdentifier(entry.Name, o.rules)
	if invalid == nil {
		invalid = hotfolder.ValidateLayout(entry.Path)
	}
	if invalid != nil && !o.cfg.Hotfolder.QuarantineMalformed {
		logging.WarnWithContext(logger, "entry rejected", "entry_invalid",
			logging.Error(invalid),
			logging.String(logging.FieldImpact, "batch stays in the hotfolder and is re-examined every cycle"),
		)
		report.Outcome = OutcomeInvalid
		report.Stage = "validate"
		report.Reason = services.Kind(invalid)
		report.Err = invalid
		return finish(report)
	}

	result, err := hotfolder.TryClaim(entry.Path, o.cfg.Hotfolder.ClaimMarker, hotfolder.ClaimInfo{
		Host:    o.host,
		PID:     os.Getpid(),
		CycleID: cycleID(ctx),
		At:      o.now(),
	})
	if err != nil {
		return finish(o.failEntry(logger, report, "claim", err))
	}
	if result == hotfolder.AlreadyClaimed {
		logger.Info("entry claimed concurrently", logging.String(logging.FieldEventType, "entry_claimed_elsewhere"))
		report.Outcome = OutcomeClaimedElsewhere
		return finish(report)
	}
	logger.Info("entry claimed", logging.String(logging.FieldEventType, "entry_claimed"))

	// A claimed entry ends ingested or quarantined. Shutdown waits for it;
	// the catalog timeout bounds the only remote call.
	ctx = context.WithoutCancel(ctx)
	if invalid != nil {
		return finish(o.quarantine(ctx, report, "validate", invalid))
	}
	return finish(o.ingest(ctx, report, entry, parsed))
}

// ingest runs the claimed entry through resolve, provision, relocate,
// activate and cleanup.
func (o *Orchestrator) ingest(ctx context.Context, report EntryReport, entry hotfolder.Entry, parsed hotfolder.ParsedIdentifier) EntryReport {
	doc, err := o.catalog.Resolve(services.WithStage(ctx, "resolve"), catalog.Query{
		Identifier: parsed.CatalogID,
		Catalog:    o.cfg.Catalog.Name,
		Profile:    o.cfg.Catalog.Profile,
		Field:      o.cfg.Catalog.SearchField,
	})
	if err != nil {
		if !errors.Is(err, services.ErrLookup) {
			err = services.Wrap(services.ErrLookup, "resolve", "", parsed.CatalogID, err)
		}
		return o.quarantine(ctx, report, "resolve", err)
	}

	unit, err := o.provisioner.Provision(ctx, parsed, doc)
	if err != nil {
		return o.quarantine(ctx, report, "provision", err)
	}
	report.UnitID = unit.ID
	ctx = services.WithUnitID(ctx, unit.ID)
	logger := logging.WithContext(ctx, o.logger)

	dest := o.workflow.ImagesOrigDir(unit)
	moved, err := hotfolder.Relocate(services.WithStage(ctx, "relocate"), entry.Path, dest, o.junk)
	if err != nil {
		return o.quarantine(ctx, report, "relocate", err)
	}
	report.Files = len(moved.Files)
	report.Bytes = moved.Bytes
	if err := o.workflow.AppendHistory(ctx, unit.ID, workunit.HistoryImagesStored,
		fmt.Sprintf("%d files from %s", len(moved.Files), entry.Name)); err != nil {
		logger.Warn("record relocation failed", logging.Error(err))
	}
	logger.Info("images relocated",
		logging.String(logging.FieldEventType, "images_relocated"),
		logging.String("destination", dest),
		logging.Int("files", len(moved.Files)),
		logging.Int("skipped", len(moved.Skipped)),
		logging.Int64("bytes", moved.Bytes),
	)

	started, err := o.activator.Activate(ctx, unit)
	report.StepsStarted = started
	if err != nil {
		logging.WarnWithContext(logger, "step activation incomplete", "step_activation_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "start the remaining steps from the workflow system"),
			logging.String(logging.FieldImpact, "unit exists but some automatic steps did not start"),
		)
	}

	if err := hotfolder.Remove(entry.Path); err != nil {
		logging.ErrorWithContext(logger, "source cleanup failed", "cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the batch folder manually; it stays claimed"),
		)
		o.publish(ctx, notifications.EventError, notifications.Payload{
			"context": "cleanup of " + entry.Name,
			"error":   err,
		})
	}

	report.Outcome = OutcomeIngested
	logger.Info("entry ingested",
		logging.String(logging.FieldEventType, "entry_ingested"),
		logging.String("title", unit.Title),
		logging.Int("steps_started", started),
	)
	o.publish(ctx, notifications.EventIngested, notifications.Payload{
		"entry":  entry.Name,
		"unitID": unit.ID,
		"files":  len(moved.Files),
	})
	return report
}

// quarantine records a post-claim failure. The marker stays in place so later
// cycles skip the entry.
func (o *Orchestrator) quarantine(ctx context.Context, report EntryReport, stage string, err error) EntryReport {
	report.Outcome = OutcomeQuarantined
	report.Stage = stage
	report.Reason = services.Kind(err)
	report.Err = err

	logger := logging.WithContext(services.WithStage(ctx, stage), o.logger)
	logging.ErrorWithContext(logger, "entry quarantined", "entry_quarantined",
		logging.Error(err),
		logging.Alert("quarantine"),
	)
	o.publish(ctx, notifications.EventQuarantined, notifications.Payload{
		"entry":  report.Entry,
		"stage":  stage,
		"reason": report.Reason,
		"error":  err,
		"hint":   services.Hint(err),
	})
	return report
}

func (o *Orchestrator) failEntry(logger *slog.Logger, report EntryReport, stage string, err error) EntryReport {
	logging.WarnWithContext(logger, "entry check failed", "entry_failed",
		logging.Error(err),
		logging.String(logging.FieldStage, stage),
		logging.String(logging.FieldImpact, "entry retried next cycle"),
	)
	report.Outcome = OutcomeFailed
	report.Stage = stage
	report.Reason = services.Kind(err)
	report.Err = err
	return report
}

func (o *Orchestrator) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		logging.WithContext(ctx, o.logger).Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
		)
	}
}

func (o *Orchestrator) logSummary(logger *slog.Logger, report CycleReport) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "cycle_complete"),
		logging.Int("entries", len(report.Entries)),
		logging.Int("ingested", report.Count(OutcomeIngested)),
		logging.Int("quarantined", report.Count(OutcomeQuarantined)),
		logging.Int("waiting", report.Count(OutcomeWaiting)),
		logging.Duration("duration", report.Duration()),
	}
	if n := report.Count(OutcomeDeferred); n > 0 {
		attrs = append(attrs, logging.Int("deferred", n))
	}
	if report.Count(OutcomeIngested)+report.Count(OutcomeQuarantined) == 0 {
		logger.Debug("poll cycle finished", logging.Args(attrs...)...)
		return
	}
	logger.Info("poll cycle finished", logging.Args(attrs...)...)
}

func cycleID(ctx context.Context) string {
	id, _ := services.CycleIDFromContext(ctx)
	return id
}
