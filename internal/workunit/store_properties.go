package workunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Properties returns every property of the unit.
func (s *Store) Properties(ctx context.Context, unitID int64) ([]Property, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE unit_id = ? ORDER BY id`, unitID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var props []Property
	for rows.Next() {
		prop, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, prop)
	}
	return props, rows.Err()
}

// SetProperty creates or replaces the named process property.
func (s *Store) SetProperty(ctx context.Context, unitID int64, name, value string) error {
	if name == "" {
		return errors.New("property name must not be empty")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM properties WHERE unit_id = ? AND kind = ? AND name = ? ORDER BY id LIMIT 1`,
			unitID, string(PropertyProcess), name,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO properties (unit_id, kind, name, value, container) VALUES (?, ?, ?, ?, 0)`,
				unitID, string(PropertyProcess), name, nullableString(value),
			); err != nil {
				return fmt.Errorf("insert property %q: %w", name, err)
			}
		case err != nil:
			return fmt.Errorf("lookup property %q: %w", name, err)
		default:
			if _, err := tx.ExecContext(ctx,
				`UPDATE properties SET value = ? WHERE id = ?`, nullableString(value), id,
			); err != nil {
				return fmt.Errorf("update property %q: %w", name, err)
			}
		}
		return nil
	})
}
