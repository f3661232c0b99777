package ingest

import (
	"time"

	"hotfolder/internal/config"
	"hotfolder/internal/hotfolder"
)

// EntryState is the read-only view of a hotfolder entry between cycles.
type EntryState string

const (
	StateQuarantined EntryState = "quarantined"
	StateWaiting     EntryState = "waiting"
	StateReady       EntryState = "ready"
	StateInvalid     EntryState = "invalid"
)

// EntryStatus describes one entry as the next cycle would see it.
type EntryStatus struct {
	Name      string
	Path      string
	State     EntryState
	Detail    string
	Children  int
	MinAge    time.Duration
	ClaimedAt time.Time
}

// Inspect reports the state of every hotfolder entry without claiming or
// modifying anything.
func Inspect(cfg *config.Config, now time.Time) ([]EntryStatus, error) {
	entries, err := hotfolder.Scan(cfg.Paths.HotfolderDir, cfg.Hotfolder.ClaimMarker)
	if err != nil {
		return nil, err
	}
	rules := hotfolder.NameRules{Separator: cfg.Hotfolder.Separator, Placeholder: cfg.Hotfolder.TitlePlaceholder}

	statuses := make([]EntryStatus, 0, len(entries))
	for _, entry := range entries {
		status := EntryStatus{Name: entry.Name, Path: entry.Path}
		obs, obsErr := hotfolder.Observe(entry.Path, now)
		if obsErr == nil {
			status.Children = obs.Children
			status.MinAge = obs.MinAge
		}

		switch {
		case entry.Claimed:
			status.State = StateQuarantined
			if at, err := hotfolder.ClaimedAt(entry.Path, cfg.Hotfolder.ClaimMarker); err == nil {
				status.ClaimedAt = at
			}
			status.Detail = "claimed; release to retry"
		default:
			_, invalid := hotfolder.ParseIdentifier(entry.Name, rules)
			if invalid == nil {
				invalid = hotfolder.ValidateLayout(entry.Path)
			}
			switch {
			case invalid != nil:
				status.State = StateInvalid
				status.Detail = invalid.Error()
			case obsErr == nil && obs.Settled(cfg.QuietPeriod()):
				status.State = StateReady
			default:
				status.State = StateWaiting
				if status.Children == 0 {
					status.Detail = "empty"
				}
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Quarantined filters statuses down to claimed entries.
func Quarantined(statuses []EntryStatus) []EntryStatus {
	var out []EntryStatus
	for _, status := range statuses {
		if status.State == StateQuarantined {
			out = append(out, status)
		}
	}
	return out
}
