package workunit

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_template.toml
var sampleTemplate string

// SampleTemplate returns an annotated template definition.
func SampleTemplate() string {
	return sampleTemplate
}

// TemplateDefinition is the TOML form of a template.
type TemplateDefinition struct {
	Title      string               `toml:"title"`
	Steps      []StepDefinition     `toml:"steps"`
	Properties []PropertyDefinition `toml:"properties"`
}

// StepDefinition describes one template step.
type StepDefinition struct {
	Title     string `toml:"title"`
	Status    string `toml:"status"`
	Automatic bool   `toml:"automatic"`
	Script    string `toml:"script"`
}

// PropertyDefinition describes one template property.
type PropertyDefinition struct {
	Kind      string `toml:"kind"`
	Name      string `toml:"name"`
	Value     string `toml:"value"`
	Container int    `toml:"container"`
}

// ParseTemplate decodes a template definition. Unknown keys are rejected so
// typos do not silently drop steps.
func ParseTemplate(r io.Reader) (*TemplateDefinition, error) {
	var def TemplateDefinition
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &def, nil
}

// Unit converts the definition into an unsaved template unit. Steps without a
// status are locked; when no step is open the first locked one is opened.
func (d *TemplateDefinition) Unit() (*Unit, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, errors.New("template title is required")
	}
	if len(d.Steps) == 0 {
		return nil, errors.New("template needs at least one step")
	}

	unit := &Unit{Title: title, IsTemplate: true, Visible: true, Provisioned: true}
	hasOpen := false
	for i, def := range d.Steps {
		stepTitle := strings.TrimSpace(def.Title)
		if stepTitle == "" {
			return nil, fmt.Errorf("step %d has no title", i+1)
		}
		status := StepLocked
		if strings.TrimSpace(def.Status) != "" {
			parsed, ok := ParseStepStatus(def.Status)
			if !ok {
				return nil, fmt.Errorf("step %q has unknown status %q", stepTitle, def.Status)
			}
			status = parsed
		}
		if status == StepOpen {
			hasOpen = true
		}
		unit.Steps = append(unit.Steps, Step{
			Ordinal:   i + 1,
			Title:     stepTitle,
			Status:    status,
			Automatic: def.Automatic,
			Script:    strings.TrimSpace(def.Script),
		})
	}
	if !hasOpen {
		for i := range unit.Steps {
			if unit.Steps[i].Status == StepLocked {
				unit.Steps[i].Status = StepOpen
				break
			}
		}
	}

	for _, def := range d.Properties {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			return nil, errors.New("template property without name")
		}
		kind := PropertyKind(strings.ToLower(strings.TrimSpace(def.Kind)))
		switch kind {
		case "":
			kind = PropertyProcess
		case PropertyProcess, PropertyTemplate, PropertyWorkpiece:
		default:
			return nil, fmt.Errorf("property %q has unknown kind %q", name, def.Kind)
		}
		unit.Properties = append(unit.Properties, Property{
			Kind:      kind,
			Name:      name,
			Value:     def.Value,
			Container: def.Container,
		})
	}
	return unit, nil
}

// ImportTemplate parses a definition from r and stores it as a new template.
func (s *Store) ImportTemplate(ctx context.Context, r io.Reader) (*Unit, error) {
	def, err := ParseTemplate(r)
	if err != nil {
		return nil, err
	}
	unit, err := def.Unit()
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}
