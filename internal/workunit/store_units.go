package workunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Save inserts unit when it has no ID yet, otherwise updates it. Steps and
// properties are written in the same transaction; rows that no longer appear
// on the unit are removed.
func (s *Store) Save(ctx context.Context, unit *Unit) error {
	if unit == nil {
		return errors.New("unit is nil")
	}
	if strings.TrimSpace(unit.Title) == "" {
		return errors.New("unit title must not be empty")
	}
	now := time.Now().UTC()
	snapshot := snapshotIDs(unit)

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// A busy retry replays the transaction from the original ids.
		snapshot.restore(unit)
		if unit.ID == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO units (source_template_id, title, is_template, visible, provisioned, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				nullableID(unit.SourceTemplateID),
				unit.Title,
				boolToInt(unit.IsTemplate),
				boolToInt(unit.Visible),
				boolToInt(unit.Provisioned),
				formatTime(now),
				formatTime(now),
			)
			if err != nil {
				return fmt.Errorf("insert unit: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			unit.ID = id
			unit.CreatedAt = now
		} else {
			res, err := tx.ExecContext(ctx,
				`UPDATE units SET source_template_id = ?, title = ?, is_template = ?, visible = ?, provisioned = ?, updated_at = ?
                 WHERE id = ?`,
				nullableID(unit.SourceTemplateID),
				unit.Title,
				boolToInt(unit.IsTemplate),
				boolToInt(unit.Visible),
				boolToInt(unit.Provisioned),
				formatTime(now),
				unit.ID,
			)
			if err != nil {
				return fmt.Errorf("update unit: %w", err)
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return fmt.Errorf("update unit %d: %w", unit.ID, ErrUnitNotFound)
			}
		}
		unit.UpdatedAt = now

		if err := saveSteps(ctx, tx, unit); err != nil {
			return err
		}
		return saveProperties(ctx, tx, unit)
	})
	if err != nil {
		snapshot.restore(unit)
		return fmt.Errorf("save unit %q: %w", unit.Title, err)
	}
	return nil
}

type idSnapshot struct {
	unit       int64
	steps      []int64
	properties []int64
}

func snapshotIDs(unit *Unit) idSnapshot {
	snap := idSnapshot{unit: unit.ID}
	for _, step := range unit.Steps {
		snap.steps = append(snap.steps, step.ID)
	}
	for _, prop := range unit.Properties {
		snap.properties = append(snap.properties, prop.ID)
	}
	return snap
}

func (snap idSnapshot) restore(unit *Unit) {
	unit.ID = snap.unit
	for i := range unit.Steps {
		unit.Steps[i].ID = snap.steps[i]
	}
	for i := range unit.Properties {
		unit.Properties[i].ID = snap.properties[i]
	}
}

func saveSteps(ctx context.Context, tx *sql.Tx, unit *Unit) error {
	keep := make([]any, 0, len(unit.Steps)+1)
	keep = append(keep, unit.ID)
	for i := range unit.Steps {
		step := &unit.Steps[i]
		step.UnitID = unit.ID
		if step.Status == "" {
			step.Status = StepLocked
		}
		args := []any{
			step.Ordinal,
			step.Title,
			string(step.Status),
			boolToInt(step.Automatic),
			nullableString(step.Script),
			nullableString(string(step.EditType)),
			nullableString(step.User),
			nullableTime(step.ProcessingTime),
			nullableTime(step.BeginTime),
			nullableTime(step.EndTime),
		}
		if step.ID == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO steps (unit_id, ordinal, title, status, automatic, script, edit_type, user_name, processing_time, begin_time, end_time)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				append([]any{unit.ID}, args...)...,
			)
			if err != nil {
				return fmt.Errorf("insert step %q: %w", step.Title, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			step.ID = id
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE steps SET ordinal = ?, title = ?, status = ?, automatic = ?, script = ?, edit_type = ?, user_name = ?,
                 processing_time = ?, begin_time = ?, end_time = ?
                 WHERE id = ? AND unit_id = ?`,
				append(args, step.ID, unit.ID)...,
			); err != nil {
				return fmt.Errorf("update step %q: %w", step.Title, err)
			}
		}
		keep = append(keep, step.ID)
	}
	query := `DELETE FROM steps WHERE unit_id = ?`
	if len(keep) > 1 {
		query += ` AND id NOT IN (` + makePlaceholders(len(keep)-1) + `)`
	}
	if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
		return fmt.Errorf("prune steps: %w", err)
	}
	return nil
}

func saveProperties(ctx context.Context, tx *sql.Tx, unit *Unit) error {
	keep := make([]any, 0, len(unit.Properties)+1)
	keep = append(keep, unit.ID)
	for i := range unit.Properties {
		prop := &unit.Properties[i]
		prop.UnitID = unit.ID
		if prop.Kind == "" {
			prop.Kind = PropertyProcess
		}
		if prop.ID == 0 {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO properties (unit_id, kind, name, value, container) VALUES (?, ?, ?, ?, ?)`,
				unit.ID, string(prop.Kind), prop.Name, nullableString(prop.Value), prop.Container,
			)
			if err != nil {
				return fmt.Errorf("insert property %q: %w", prop.Name, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			prop.ID = id
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE properties SET kind = ?, name = ?, value = ?, container = ? WHERE id = ? AND unit_id = ?`,
				string(prop.Kind), prop.Name, nullableString(prop.Value), prop.Container, prop.ID, unit.ID,
			); err != nil {
				return fmt.Errorf("update property %q: %w", prop.Name, err)
			}
		}
		keep = append(keep, prop.ID)
	}
	query := `DELETE FROM properties WHERE unit_id = ?`
	if len(keep) > 1 {
		query += ` AND id NOT IN (` + makePlaceholders(len(keep)-1) + `)`
	}
	if _, err := tx.ExecContext(ctx, query, keep...); err != nil {
		return fmt.Errorf("prune properties: %w", err)
	}
	return nil
}

// Get loads a unit with its steps and properties. It returns nil, nil when
// the id does not exist.
func (s *Store) Get(ctx context.Context, id int64) (*Unit, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit: %w", err)
	}
	if err := s.loadChildren(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// Template loads the template with the given id.
func (s *Store) Template(ctx context.Context, id int64) (*Unit, error) {
	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("template %d: %w", id, ErrUnitNotFound)
	}
	if !unit.IsTemplate {
		return nil, fmt.Errorf("unit %d (%s) is not a template", id, unit.Title)
	}
	return unit, nil
}

// FindByTitle returns the most recent non-template unit with title, or nil.
func (s *Store) FindByTitle(ctx context.Context, title string) (*Unit, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+unitColumns+` FROM units WHERE title = ? AND is_template = 0 ORDER BY id DESC LIMIT 1`,
		title,
	)
	unit, err := scanUnit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find unit by title: %w", err)
	}
	if err := s.loadChildren(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

// ListOptions filters List. Units still being provisioned are left out
// unless IncludePending is set.
type ListOptions struct {
	Templates      bool
	IncludePending bool
	Limit          int
}

// List returns units ordered by id, newest last. Steps are loaded so callers
// can summarize progress; properties are not.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Unit, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + unitColumns + ` FROM units WHERE is_template = ?`
	args := []any{boolToInt(opts.Templates)}
	if !opts.IncludePending {
		query += ` AND provisioned = 1`
	}
	query += ` ORDER BY id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	var units []*Unit
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, unit := range units {
		steps, err := s.Steps(ctx, unit.ID)
		if err != nil {
			return nil, err
		}
		unit.Steps = steps
	}
	return units, nil
}

// Delete removes the unit, its steps, properties and history, and its
// managed directory.
func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM history WHERE unit_id = ?`,
			`DELETE FROM properties WHERE unit_id = ?`,
			`DELETE FROM steps WHERE unit_id = ?`,
			`DELETE FROM units WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete unit %d: %w", id, err)
	}
	if dir := s.UnitDir(id); dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove unit directory: %w", err)
		}
	}
	return nil
}

func (s *Store) loadChildren(ctx context.Context, unit *Unit) error {
	steps, err := s.Steps(ctx, unit.ID)
	if err != nil {
		return err
	}
	props, err := s.Properties(ctx, unit.ID)
	if err != nil {
		return err
	}
	unit.Steps = steps
	unit.Properties = props
	return nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
