package workunit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StepStats counts steps of non-template units grouped by status.
func (s *Store) StepStats(ctx context.Context) (map[StepStatus]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.status, COUNT(1) FROM steps s JOIN units u ON u.id = s.unit_id
         WHERE u.is_template = 0 GROUP BY s.status`)
	if err != nil {
		return nil, fmt.Errorf("step stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[StepStatus]int)
	for rows.Next() {
		var status StepStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// CheckHealth returns diagnostic information about the work unit database.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{DBPath: s.path}
	if s.db == nil {
		return health, errors.New("work unit database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		return health, fmt.Errorf("ping work unit database: %w", err)
	}

	row := s.db.QueryRowContext(connCtx,
		`SELECT
            COALESCE(SUM(CASE WHEN is_template = 0 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN is_template = 1 THEN 1 ELSE 0 END), 0),
            COALESCE(SUM(CASE WHEN is_template = 0 AND provisioned = 0 THEN 1 ELSE 0 END), 0)
         FROM units`)
	if err := row.Scan(&health.Units, &health.Templates, &health.Pending); err != nil {
		return health, fmt.Errorf("count units: %w", err)
	}

	stats, err := s.StepStats(connCtx)
	if err != nil {
		return health, err
	}
	health.StepsByStatus = stats

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")
	return health, nil
}
