package ingest_test

import (
	"testing"
	"time"

	"hotfolder/internal/hotfolder"
	"hotfolder/internal/ingest"
	"hotfolder/internal/testsupport"
)

func TestInspectClassifiesEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := cfg.Paths.HotfolderDir
	testsupport.MakeBatch(t, root, "140210016_ScannerA", 10*time.Minute, "a.tif")
	testsupport.MakeBatch(t, root, "140210017_ScannerA", 5*time.Second, "a.tif")
	testsupport.MakeBatch(t, root, "140210018", 10*time.Minute, "a.tif")
	claimed := testsupport.MakeBatch(t, root, "140210019_ScannerB", 10*time.Minute, "a.tif")
	if _, err := hotfolder.TryClaim(claimed, cfg.Hotfolder.ClaimMarker, hotfolder.ClaimInfo{}); err != nil {
		t.Fatalf("TryClaim: %v", err)
	}

	statuses, err := ingest.Inspect(cfg, time.Now())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	want := map[string]ingest.EntryState{
		"140210016_ScannerA": ingest.StateReady,
		"140210017_ScannerA": ingest.StateWaiting,
		"140210018":          ingest.StateInvalid,
		"140210019_ScannerB": ingest.StateQuarantined,
	}
	if len(statuses) != len(want) {
		t.Fatalf("expected %d statuses, got %+v", len(want), statuses)
	}
	for _, status := range statuses {
		if status.State != want[status.Name] {
			t.Fatalf("%s: state %s, want %s", status.Name, status.State, want[status.Name])
		}
	}

	quarantined := ingest.Quarantined(statuses)
	if len(quarantined) != 1 || quarantined[0].Name != "140210019_ScannerB" || quarantined[0].ClaimedAt.IsZero() {
		t.Fatalf("unexpected quarantine list %+v", quarantined)
	}
}
