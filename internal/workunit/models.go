package workunit

import (
	"strings"
	"time"
)

// StepStatus represents the lifecycle of a workflow step.
type StepStatus string

const (
	StepLocked StepStatus = "locked"
	StepOpen   StepStatus = "open"
	StepInWork StepStatus = "inwork"
	StepDone   StepStatus = "done"
	StepError  StepStatus = "error"
)

var allStepStatuses = []StepStatus{StepLocked, StepOpen, StepInWork, StepDone, StepError}

// ParseStepStatus converts a string into a known StepStatus.
func ParseStepStatus(value string) (StepStatus, bool) {
	normalized := StepStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStepStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// EditType records how a step's state was last changed.
type EditType string

const (
	EditManual    EditType = "manual"
	EditAutomatic EditType = "automatic"
	EditAdmin     EditType = "admin"
)

// PropertyKind separates unit properties from scan template placeholders and
// workpiece (source material) descriptors.
type PropertyKind string

const (
	PropertyProcess   PropertyKind = "process"
	PropertyTemplate  PropertyKind = "template"
	PropertyWorkpiece PropertyKind = "workpiece"
)

// Unit is a tracked unit of work, or a template when IsTemplate is set.
type Unit struct {
	ID int64
	// SourceTemplateID is the template a unit was cloned from.
	SourceTemplateID int64
	Title            string
	IsTemplate       bool
	// Visible is the workflow system's listing flag. Ingested units keep it
	// unset.
	Visible bool
	// Provisioned marks a unit whose provisioning finished. Clones left
	// unprovisioned by a crash are removed by the startup sweep.
	Provisioned bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Steps       []Step
	Properties  []Property
}

// Step is one ordered task of a unit.
type Step struct {
	ID             int64
	UnitID         int64
	Ordinal        int
	Title          string
	Status         StepStatus
	Automatic      bool
	Script         string
	EditType       EditType
	User           string
	ProcessingTime *time.Time
	BeginTime      *time.Time
	EndTime        *time.Time
}

// Property is a name/value pair attached to a unit.
type Property struct {
	ID        int64
	UnitID    int64
	Kind      PropertyKind
	Name      string
	Value     string
	Container int
}

// HistoryEvent is one entry in a unit's history log.
type HistoryEvent struct {
	ID     int64
	UnitID int64
	At     time.Time
	Kind   string
	Detail string
}

// History event kinds.
const (
	HistoryUnitCreated  = "unit_created"
	HistoryStepOpened   = "step_opened"
	HistoryStepStarted  = "step_started"
	HistoryStepDone     = "step_done"
	HistoryStepError    = "step_error"
	HistoryImagesStored = "images_stored"
)

// Clone copies template into a new, unsaved, unlisted and unprovisioned unit
// titled title. Steps keep their status, script and order; every property
// kind is copied.
func Clone(template *Unit, title string) *Unit {
	if template == nil {
		return nil
	}
	unit := &Unit{
		SourceTemplateID: template.ID,
		Title:            strings.TrimSpace(title),
		IsTemplate:       false,
		Visible:          false,
		Provisioned:      false,
	}
	unit.Steps = make([]Step, 0, len(template.Steps))
	for _, step := range template.Steps {
		step.ID = 0
		step.UnitID = 0
		step.ProcessingTime = cloneTime(step.ProcessingTime)
		step.BeginTime = cloneTime(step.BeginTime)
		step.EndTime = cloneTime(step.EndTime)
		unit.Steps = append(unit.Steps, step)
	}
	unit.Properties = make([]Property, 0, len(template.Properties))
	for _, prop := range template.Properties {
		prop.ID = 0
		prop.UnitID = 0
		unit.Properties = append(unit.Properties, prop)
	}
	return unit
}

// Property returns the value of the named process property.
func (u *Unit) Property(name string) (string, bool) {
	if u == nil {
		return "", false
	}
	for _, prop := range u.Properties {
		if prop.Kind == PropertyProcess && prop.Name == name {
			return prop.Value, true
		}
	}
	return "", false
}

// PropertiesOfKind filters properties by kind.
func (u *Unit) PropertiesOfKind(kind PropertyKind) []Property {
	if u == nil {
		return nil
	}
	var out []Property
	for _, prop := range u.Properties {
		if prop.Kind == kind {
			out = append(out, prop)
		}
	}
	return out
}

// AutomaticOpenSteps returns the steps that are open and automatic.
func (u *Unit) AutomaticOpenSteps() []Step {
	if u == nil {
		return nil
	}
	var out []Step
	for _, step := range u.Steps {
		if step.Status == StepOpen && step.Automatic {
			out = append(out, step)
		}
	}
	return out
}

// StepSummary counts steps per status.
func (u *Unit) StepSummary() map[StepStatus]int {
	summary := make(map[StepStatus]int, len(allStepStatuses))
	if u == nil {
		return summary
	}
	for _, step := range u.Steps {
		summary[step.Status]++
	}
	return summary
}

// Health summarizes the store for diagnostics.
type Health struct {
	DBPath         string
	Units          int
	Templates      int
	Pending        int
	StepsByStatus  map[StepStatus]int
	IntegrityCheck bool
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
