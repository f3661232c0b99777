package metrics_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"hotfolder/internal/ingest"
	"hotfolder/internal/metrics"
)

func TestObserveCycleCountsEntries(t *testing.T) {
	m := metrics.New()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	report := ingest.CycleReport{
		CycleID:  "c1",
		Started:  started,
		Finished: started.Add(2 * time.Second),
		Entries: []ingest.EntryReport{
			{Entry: "140210016_ScannerA", Outcome: ingest.OutcomeIngested, Files: 3, Bytes: 4096, StepsStarted: 1},
			{Entry: "999_ScannerB", Outcome: ingest.OutcomeQuarantined},
			{Entry: "fresh_ScannerC", Outcome: ingest.OutcomeWaiting, Files: 7},
		},
	}
	m.ObserveCycle(report, nil)

	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(metrics.ResultCompleted)); got != 1 {
		t.Fatalf("completed cycles = %v", got)
	}
	if got := testutil.ToFloat64(m.EntriesTotal.WithLabelValues(string(ingest.OutcomeQuarantined))); got != 1 {
		t.Fatalf("quarantined entries = %v", got)
	}
	if got := testutil.ToFloat64(m.IngestedFilesTotal); got != 3 {
		t.Fatalf("files = %v, want only the ingested entry counted", got)
	}
	if got := testutil.ToFloat64(m.IngestedBytesTotal); got != 4096 {
		t.Fatalf("bytes = %v", got)
	}
	if got := testutil.ToFloat64(m.StepsStartedTotal); got != 1 {
		t.Fatalf("steps = %v", got)
	}
	if got := testutil.ToFloat64(m.LastCycleTimestamp); got != float64(report.Finished.Unix()) {
		t.Fatalf("last cycle timestamp = %v", got)
	}
}

func TestObserveSkippedCycle(t *testing.T) {
	m := metrics.New()
	now := time.Now()
	m.ObserveCycle(ingest.CycleReport{CycleID: "c2", Started: now, Finished: now, Skipped: true}, errors.New("hotfolder missing"))
	m.ObserveCycle(ingest.CycleReport{}, errors.New("lock failed"))

	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(metrics.ResultSkipped)); got != 1 {
		t.Fatalf("skipped cycles = %v", got)
	}
	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(metrics.ResultFailed)); got != 1 {
		t.Fatalf("failed cycles = %v", got)
	}
	if got := testutil.CollectAndCount(m.CycleDuration); got != 1 {
		t.Fatalf("histogram series = %d", got)
	}
}

func TestNilMetricsIgnoresCycles(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveCycle(ingest.CycleReport{CycleID: "c3"}, nil)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := metrics.New()
	m.ObserveCycle(ingest.CycleReport{CycleID: "c4", Started: time.Now(), Finished: time.Now()}, nil)

	server := httptest.NewServer(m.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)
	for _, want := range []string{
		`hotfolder_ingest_cycles_total{result="completed"} 1`,
		"hotfolder_ingest_cycle_duration_seconds_bucket",
		"go_goroutines",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in exposition, got:\n%s", want, text)
		}
	}
}
