package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"hotfolder/internal/config"
	"hotfolder/internal/hotfolder"
	"hotfolder/internal/logging"
	"hotfolder/internal/metadata"
	"hotfolder/internal/services"
	"hotfolder/internal/workunit"
)

// ProvisionRules controls how template clones are prepared.
type ProvisionRules struct {
	TemplateID         int64
	ServiceUser        string
	ActivationProperty string
	ScannerProperty    string
	ConferenceField    string
	ConferenceTokens   []string
	ImagePathField     string
}

// RulesFromConfig extracts provisioning rules from cfg.
func RulesFromConfig(cfg *config.Config) ProvisionRules {
	if cfg == nil {
		return ProvisionRules{}
	}
	return ProvisionRules{
		TemplateID:         cfg.Workflow.TemplateID,
		ServiceUser:        cfg.Workflow.ServiceUser,
		ActivationProperty: cfg.Workflow.ActivationProperty,
		ScannerProperty:    cfg.Workflow.ScannerProperty,
		ConferenceField:    cfg.Workflow.ConferenceField,
		ConferenceTokens:   append([]string(nil), cfg.Workflow.ConferenceTokens...),
		ImagePathField:     cfg.Workflow.ImagePathField,
	}
}

// Provisioner clones the workflow template into a new work unit.
type Provisioner struct {
	workflow WorkflowSystem
	rules    ProvisionRules
	goos     string
	now      func() time.Time
	logger   *slog.Logger
}

// NewProvisioner builds a provisioner. A nil logger discards output.
func NewProvisioner(workflow WorkflowSystem, rules ProvisionRules, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provisioner{
		workflow: workflow,
		rules:    rules,
		goos:     runtime.GOOS,
		now:      time.Now,
		logger:   logger,
	}
}

// Provision creates, fills and persists a unit for the batch. On failure any
// unit that already reached the store is deleted again, so callers never see
// a half-provisioned unit.
func (p *Provisioner) Provision(ctx context.Context, id hotfolder.ParsedIdentifier, doc *metadata.Document) (*workunit.Unit, error) {
	ctx = services.WithStage(ctx, "provision")
	logger := logging.WithContext(ctx, p.logger)

	if doc == nil {
		return nil, services.Wrap(services.ErrProvision, "provision", "metadata", "no bibliographic description", services.ErrValidation)
	}
	template, err := p.workflow.Template(ctx, p.rules.TemplateID)
	if err != nil {
		return nil, services.Wrap(services.ErrProvision, "provision", "load template",
			fmt.Sprintf("template %d", p.rules.TemplateID), err)
	}

	unit := workunit.Clone(template, id.Title)
	p.stampSteps(unit)

	if err := p.workflow.Save(ctx, unit); err != nil {
		return nil, services.Wrap(services.ErrProvision, "provision", "save unit", id.Title, err)
	}
	ctx = services.WithUnitID(ctx, unit.ID)
	logger = logger.With(logging.Int64(logging.FieldUnitID, unit.ID))

	if err := p.fill(ctx, unit, id, doc); err != nil {
		if delErr := p.workflow.Delete(context.WithoutCancel(ctx), unit.ID); delErr != nil {
			logger.Error("discard partial unit failed",
				logging.Error(delErr),
				logging.String(logging.FieldEventType, "unit_discard_failed"),
				logging.String(logging.FieldErrorHint, "remove the unprovisioned unit manually"),
			)
			err = errors.Join(err, delErr)
		} else {
			logger.Info("partial unit discarded", logging.String(logging.FieldEventType, "unit_discarded"))
		}
		return nil, err
	}

	logger.Info("work unit provisioned",
		logging.String(logging.FieldEventType, "unit_provisioned"),
		logging.String("title", unit.Title),
		logging.Int64("template_id", template.ID),
		logging.Int("steps", len(unit.Steps)),
	)
	return unit, nil
}

func (p *Provisioner) fill(ctx context.Context, unit *workunit.Unit, id hotfolder.ParsedIdentifier, doc *metadata.Document) error {
	wrap := func(operation string, err error) error {
		return services.Wrap(services.ErrProvision, "provision", operation, unit.Title, err)
	}

	flag := ActivationFlag(doc.Logical, p.rules.ConferenceField, p.rules.ConferenceTokens)
	if name := strings.TrimSpace(p.rules.ActivationProperty); name != "" {
		if err := p.workflow.SetProperty(ctx, unit.ID, name, flag); err != nil {
			return wrap("set activation property", err)
		}
	}
	if name := strings.TrimSpace(p.rules.ScannerProperty); name != "" && id.Scanner != "" {
		if err := p.workflow.SetProperty(ctx, unit.ID, name, id.Scanner); err != nil {
			return wrap("set scanner property", err)
		}
	}
	props, err := p.workflow.Properties(ctx, unit.ID)
	if err != nil {
		return wrap("reload properties", err)
	}
	unit.Properties = props

	described := doc.Clone()
	if field := strings.TrimSpace(p.rules.ImagePathField); field != "" {
		described.Physical.RemoveMetadataByType(field)
		described.Physical.AddMetadata(field, ImagePathURL(p.workflow.ImagesTifDir(unit), p.goos))
	}
	if err := p.workflow.WriteMetadata(ctx, unit, described); err != nil {
		return wrap("write metadata", err)
	}

	if err := p.workflow.AppendHistory(ctx, unit.ID, workunit.HistoryUnitCreated, unit.Title); err != nil {
		return wrap("append history", err)
	}
	if err := p.workflow.RecordStepHistory(ctx, unit); err != nil {
		return wrap("append history", err)
	}

	unit.Provisioned = true
	if err := p.workflow.Save(ctx, unit); err != nil {
		return wrap("save unit", err)
	}
	if _, err := p.workflow.ReadMetadata(ctx, unit); err != nil {
		return wrap("reload metadata", err)
	}
	return nil
}

// stampSteps marks every step as touched by the service account. Steps the
// template already completed get begin and end times too.
func (p *Provisioner) stampSteps(unit *workunit.Unit) {
	now := p.now().UTC()
	for i := range unit.Steps {
		step := &unit.Steps[i]
		processed := now
		step.ProcessingTime = &processed
		step.EditType = workunit.EditAutomatic
		if user := strings.TrimSpace(p.rules.ServiceUser); user != "" {
			step.User = user
		}
		if step.Status == workunit.StepDone {
			begin, end := now, now
			step.BeginTime = &begin
			step.EndTime = &end
		}
	}
}
