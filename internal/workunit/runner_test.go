package workunit_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hotfolder/internal/testsupport"
	"hotfolder/internal/workunit"
)

func newRunner(t *testing.T, store *workunit.Store) *workunit.Runner {
	t.Helper()
	runner := workunit.NewRunner(store, workunit.RunnerOptions{Shell: "/bin/sh"})
	t.Cleanup(runner.Close)
	return runner
}

func provisionUnit(t *testing.T, store *workunit.Store, definition string) *workunit.Unit {
	t.Helper()
	tmpl := testsupport.MustImportTemplate(t, store, definition)
	unit := workunit.Clone(tmpl, "runner-unit")
	if err := store.Save(context.Background(), unit); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return unit
}

func TestRunnerCompletesStepAndOpensNext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newRunner(t, store)
	ctx := context.Background()

	unit := provisionUnit(t, store, testsupport.BasicTemplate(`echo "$HOTFOLDER_UNIT_TITLE" > ran.txt`))
	open := unit.AutomaticOpenSteps()
	if len(open) != 1 {
		t.Fatalf("expected one automatic open step, got %d", len(open))
	}
	if err := runner.Start(ctx, open[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runner.Wait()

	steps, err := store.Steps(ctx, unit.ID)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if steps[1].Status != workunit.StepDone || steps[1].EndTime == nil {
		t.Fatalf("expected import step done, got %+v", steps[1])
	}
	if steps[2].Status != workunit.StepOpen {
		t.Fatalf("expected manual step to be opened, got %s", steps[2].Status)
	}

	data, err := os.ReadFile(filepath.Join(store.UnitDir(unit.ID), "ran.txt"))
	if err != nil {
		t.Fatalf("expected script output file: %v", err)
	}
	if string(data) != "runner-unit\n" {
		t.Fatalf("unexpected script output %q", data)
	}

	if err := runner.Start(ctx, steps[1]); !errors.Is(err, workunit.ErrStepNotOpen) {
		t.Fatalf("expected ErrStepNotOpen for finished step, got %v", err)
	}
}

func TestRunnerMarksFailedScript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newRunner(t, store)
	ctx := context.Background()

	unit := provisionUnit(t, store, testsupport.BasicTemplate("echo broken >&2; exit 3"))
	if err := runner.Start(ctx, unit.AutomaticOpenSteps()[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runner.Wait()

	steps, _ := store.Steps(ctx, unit.ID)
	if steps[1].Status != workunit.StepError {
		t.Fatalf("expected error status, got %s", steps[1].Status)
	}
	if steps[2].Status != workunit.StepLocked {
		t.Fatalf("next step must stay locked after failure, got %s", steps[2].Status)
	}
	history, _ := store.History(ctx, unit.ID)
	last := history[len(history)-1]
	if last.Kind != workunit.HistoryStepError {
		t.Fatalf("expected step_error history, got %+v", last)
	}
}

func TestRunnerChainsAutomaticSteps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newRunner(t, store)
	ctx := context.Background()

	definition := `title = "chain"

[[steps]]
title = "first"
automatic = true
script = "echo one > one.txt"

[[steps]]
title = "second"
automatic = true
script = "echo two > two.txt"
`
	unit := provisionUnit(t, store, definition)
	if err := runner.Start(ctx, unit.AutomaticOpenSteps()[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runner.Wait()

	steps, _ := store.Steps(ctx, unit.ID)
	for _, step := range steps {
		if step.Status != workunit.StepDone {
			t.Fatalf("expected %s done, got %s", step.Title, step.Status)
		}
	}
	if _, err := os.Stat(filepath.Join(store.UnitDir(unit.ID), "two.txt")); err != nil {
		t.Fatalf("expected chained step output: %v", err)
	}
}

func TestRunnerCloseFailsRunningStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := newRunner(t, store)
	ctx := context.Background()

	// The background sleep keeps the output pipe open after the shell dies.
	unit := provisionUnit(t, store, testsupport.BasicTemplate(`touch started; sleep 30 & wait`))
	if err := runner.Start(ctx, unit.AutomaticOpenSteps()[0]); err != nil {
		t.Fatalf("Start: %v", err)
	}
	marker := filepath.Join(store.UnitDir(unit.ID), "started")
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("script did not start")
		}
		time.Sleep(20 * time.Millisecond)
	}

	began := time.Now()
	runner.Close()
	if elapsed := time.Since(began); elapsed > 10*time.Second {
		t.Fatalf("Close took %s", elapsed)
	}

	steps, err := store.Steps(ctx, unit.ID)
	if err != nil {
		t.Fatalf("Steps: %v", err)
	}
	if steps[1].Status != workunit.StepError {
		t.Fatalf("interrupted step must be marked error, got %s", steps[1].Status)
	}
	if steps[2].Status != workunit.StepLocked {
		t.Fatalf("next step must stay locked, got %s", steps[2].Status)
	}
	history, err := store.History(ctx, unit.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	last := history[len(history)-1]
	if last.Kind != workunit.HistoryStepError || !strings.Contains(last.Detail, "interrupted") {
		t.Fatalf("expected interruption in history, got %+v", last)
	}
}
