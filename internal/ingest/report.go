package ingest

import "time"

// Outcome is the result of examining one hotfolder entry during a cycle.
type Outcome string

const (
	// OutcomeWaiting means the batch is still being written or is empty.
	OutcomeWaiting Outcome = "waiting"
	// OutcomeSkipped means an earlier cycle claimed the batch.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeClaimedElsewhere means a concurrent claim won the race.
	OutcomeClaimedElsewhere Outcome = "claimed_elsewhere"
	// OutcomeInvalid means the name or layout is malformed and the batch was
	// left unclaimed.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeIngested means the batch became a work unit and was removed.
	OutcomeIngested Outcome = "ingested"
	// OutcomeQuarantined means the batch failed after the claim and stays
	// claimed.
	OutcomeQuarantined Outcome = "quarantined"
	// OutcomeFailed means the batch could not be examined or claimed; the
	// next cycle retries it.
	OutcomeFailed Outcome = "failed"
	// OutcomeDeferred means the cycle deadline passed before the batch was
	// reached.
	OutcomeDeferred Outcome = "deferred"
)

// EntryReport describes what a cycle did with one entry.
type EntryReport struct {
	Entry        string
	Outcome      Outcome
	Stage        string
	Reason       string
	Err          error
	UnitID       int64
	Files        int
	Bytes        int64
	StepsStarted int
	Duration     time.Duration
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	CycleID  string
	Started  time.Time
	Finished time.Time
	Entries  []EntryReport
	// Skipped is set when preflight or the hotfolder scan failed and no entry
	// was examined.
	Skipped bool
	Err     error
}

// Count returns how many entries ended with outcome.
func (r CycleReport) Count(outcome Outcome) int {
	n := 0
	for _, entry := range r.Entries {
		if entry.Outcome == outcome {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the cycle.
func (r CycleReport) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
