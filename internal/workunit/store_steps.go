package workunit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Steps returns the unit's steps in order.
func (s *Store) Steps(ctx context.Context, unitID int64) ([]Step, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM steps WHERE unit_id = ? ORDER BY ordinal, id`, unitID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// GetStep loads a single step.
func (s *Store) GetStep(ctx context.Context, id int64) (*Step, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+stepColumns+` FROM steps WHERE id = ?`, id)
	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get step: %w", err)
	}
	return &step, nil
}

// UpdateStep persists a step's status, stamps and editor.
func (s *Store) UpdateStep(ctx context.Context, step *Step) error {
	if step == nil {
		return errors.New("step is nil")
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE steps SET status = ?, edit_type = ?, user_name = ?, processing_time = ?, begin_time = ?, end_time = ?
         WHERE id = ?`,
		string(step.Status),
		nullableString(string(step.EditType)),
		nullableString(step.User),
		nullableTime(step.ProcessingTime),
		nullableTime(step.BeginTime),
		nullableTime(step.EndTime),
		step.ID,
	)
	if err != nil {
		return fmt.Errorf("update step %d: %w", step.ID, err)
	}
	return nil
}

// TransitionStep moves a step from one status to another only if it is still
// in from. It reports whether the transition happened, which lets concurrent
// runners agree on who executes a step.
func (s *Store) TransitionStep(ctx context.Context, id int64, from, to StepStatus, editType EditType) (bool, error) {
	now := time.Now().UTC()
	query := `UPDATE steps SET status = ?, edit_type = ?, processing_time = ?`
	args := []any{string(to), nullableString(string(editType)), formatTime(now)}
	switch to {
	case StepInWork:
		query += `, begin_time = ?`
		args = append(args, formatTime(now))
	case StepDone, StepError:
		query += `, end_time = ?`
		args = append(args, formatTime(now))
	}
	query += ` WHERE id = ? AND status = ?`
	args = append(args, id, string(from))

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition step %d to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// NextLockedStep returns the first locked step after ordinal, or nil.
func (s *Store) NextLockedStep(ctx context.Context, unitID int64, ordinal int) (*Step, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stepColumns+` FROM steps WHERE unit_id = ? AND ordinal > ? AND status = ? ORDER BY ordinal, id LIMIT 1`,
		unitID, ordinal, string(StepLocked))
	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next locked step: %w", err)
	}
	return &step, nil
}
