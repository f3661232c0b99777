package services_test

import (
	"context"
	"testing"

	"hotfolder/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEntry(ctx, "140210016_ScannerA")
	ctx = services.WithUnitID(ctx, 42)
	ctx = services.WithStage(ctx, "provision")
	ctx = services.WithCycleID(ctx, "cycle-1")
	ctx = services.WithRequestID(ctx, "req-123")

	if name, ok := services.EntryFromContext(ctx); !ok || name != "140210016_ScannerA" {
		t.Fatalf("unexpected entry: %v %v", name, ok)
	}
	if id, ok := services.UnitIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected unit id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "provision" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if id, ok := services.CycleIDFromContext(ctx); !ok || id != "cycle-1" {
		t.Fatalf("unexpected cycle id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithEntry(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.EntryFromContext(ctx); ok {
		t.Fatal("expected no entry value")
	}
}
