package workunit

import (
	"context"
	"fmt"
	"time"
)

// AppendHistory records an event for the unit.
func (s *Store) AppendHistory(ctx context.Context, unitID int64, kind, detail string) error {
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO history (unit_id, at, kind, detail) VALUES (?, ?, ?, ?)`,
		unitID, formatTime(time.Now()), kind, nullableString(detail),
	); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// RecordStepHistory appends one event per step reflecting its current
// status, so a freshly provisioned unit's history starts with the state it
// was cloned into.
func (s *Store) RecordStepHistory(ctx context.Context, unit *Unit) error {
	for _, step := range unit.Steps {
		var kind string
		switch step.Status {
		case StepOpen:
			kind = HistoryStepOpened
		case StepInWork:
			kind = HistoryStepStarted
		case StepDone:
			kind = HistoryStepDone
		case StepError:
			kind = HistoryStepError
		default:
			continue
		}
		if err := s.AppendHistory(ctx, unit.ID, kind, step.Title); err != nil {
			return err
		}
	}
	return nil
}

// History returns the unit's events, oldest first.
func (s *Store) History(ctx context.Context, unitID int64) ([]HistoryEvent, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unit_id, at, kind, COALESCE(detail, '') FROM history WHERE unit_id = ? ORDER BY id`, unitID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var events []HistoryEvent
	for rows.Next() {
		var (
			event HistoryEvent
			atRaw string
		)
		if err := rows.Scan(&event.ID, &event.UnitID, &atRaw, &event.Kind, &event.Detail); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if at, err := parseTimeString(atRaw); err == nil {
			event.At = at
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
