package workunit

import (
	"database/sql"
	"errors"
	"time"
)

const (
	unitColumns     = "id, source_template_id, title, is_template, visible, provisioned, created_at, updated_at"
	stepColumns     = "id, unit_id, ordinal, title, status, automatic, script, edit_type, user_name, processing_time, begin_time, end_time"
	propertyColumns = "id, unit_id, kind, name, value, container"
)

type rowScanner interface{ Scan(dest ...any) error }

func scanUnit(scanner rowScanner) (*Unit, error) {
	var (
		id          int64
		sourceID    sql.NullInt64
		title       string
		isTemplate  int64
		visible     int64
		provisioned int64
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
	)
	if err := scanner.Scan(&id, &sourceID, &title, &isTemplate, &visible, &provisioned, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	unit := &Unit{
		ID:               id,
		SourceTemplateID: sourceID.Int64,
		Title:            title,
		IsTemplate:       isTemplate != 0,
		Visible:          visible != 0,
		Provisioned:      provisioned != 0,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		unit.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		unit.UpdatedAt = updated
	}
	return unit, nil
}

func scanStep(scanner rowScanner) (Step, error) {
	var (
		step          Step
		status        string
		automatic     int64
		script        sql.NullString
		editType      sql.NullString
		user          sql.NullString
		processingRaw sql.NullString
		beginRaw      sql.NullString
		endRaw        sql.NullString
	)
	if err := scanner.Scan(
		&step.ID,
		&step.UnitID,
		&step.Ordinal,
		&step.Title,
		&status,
		&automatic,
		&script,
		&editType,
		&user,
		&processingRaw,
		&beginRaw,
		&endRaw,
	); err != nil {
		return Step{}, err
	}
	step.Status = StepStatus(status)
	step.Automatic = automatic != 0
	step.Script = script.String
	step.EditType = EditType(editType.String)
	step.User = user.String
	step.ProcessingTime = parseNullableTime(processingRaw)
	step.BeginTime = parseNullableTime(beginRaw)
	step.EndTime = parseNullableTime(endRaw)
	return step, nil
}

func scanProperty(scanner rowScanner) (Property, error) {
	var (
		prop  Property
		kind  string
		value sql.NullString
	)
	if err := scanner.Scan(&prop.ID, &prop.UnitID, &kind, &prop.Name, &value, &prop.Container); err != nil {
		return Property{}, err
	}
	prop.Kind = PropertyKind(kind)
	prop.Value = value.String
	return prop, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableID(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
