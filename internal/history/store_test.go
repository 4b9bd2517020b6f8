package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"liquidplan/internal/history"
	"liquidplan/internal/testsupport"
)

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if store.Path() != filepath.Join(cfg.Paths.OutputDir, "history.db") {
		t.Fatalf("unexpected path %q", store.Path())
	}

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history, got %d runs", len(runs))
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.StartRun(t, store, "run-1", "extraction")
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	run, err := reopened.GetRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("GetRun after reopen failed: %v", err)
	}
	if run.Status != history.StatusRunning {
		t.Fatalf("expected running status, got %q", run.Status)
	}
}

func TestStartRunRequiresID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if err := store.StartRun(context.Background(), history.Run{Protocol: "extraction"}); err == nil {
		t.Fatal("expected error for missing run id")
	}
}

func TestFinishRunRecordsOutcomeAndSteps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "abc123", "station-b")
	outcome := history.Outcome{
		Status:       history.StatusCompleted,
		TipsUsed:     240,
		TipRefills:   1,
		ReagentsJSON: `[{"key":"beads"}]`,
		Steps: []history.Step{
			{Number: 1, Description: "Transfer beads", Executed: true, Duration: 1500 * time.Millisecond},
			{Number: 2, Description: "Engage magnet", Executed: true, WaitSeconds: 600},
			{Number: 3, Description: "Remove supernatant", Executed: false},
		},
	}
	if err := store.FinishRun(ctx, "abc123", outcome); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, "abc")
	if err != nil {
		t.Fatalf("GetRun by prefix failed: %v", err)
	}
	if run.Status != history.StatusCompleted || run.TipsUsed != 240 || run.TipRefills != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.FinishedAt.IsZero() {
		t.Fatal("expected finished timestamp")
	}
	if run.ReagentsJSON != outcome.ReagentsJSON {
		t.Fatalf("reagents json = %q", run.ReagentsJSON)
	}
	if len(run.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(run.Steps))
	}
	if run.Steps[0].Duration != 1500*time.Millisecond {
		t.Fatalf("step 1 duration = %s", run.Steps[0].Duration)
	}
	if run.Steps[1].WaitSeconds != 600 {
		t.Fatalf("step 2 wait = %d", run.Steps[1].WaitSeconds)
	}
	if run.Steps[2].Executed {
		t.Fatal("step 3 should be recorded as skipped")
	}
}

func TestFinishRunRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "failed-run", "station-b")
	err := store.FinishRun(ctx, "failed-run", history.Outcome{
		Status:       history.StatusFailed,
		ErrorKind:    "configuration",
		ErrorMessage: "beads: channel exhausted",
	})
	if err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, "failed-run")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != history.StatusFailed || run.ErrorKind != "configuration" {
		t.Fatalf("unexpected run %+v", run)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.FinishRun(context.Background(), "missing", history.Outcome{Status: history.StatusCompleted})
	if !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestGetRunPrefixLookup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.StartRun(t, store, "aa11", "one")
	testsupport.StartRun(t, store, "aa22", "two")

	if _, err := store.GetRun(ctx, "aa"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	run, err := store.GetRun(ctx, "aa2")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.ID != "aa22" {
		t.Fatalf("expected aa22, got %s", run.ID)
	}
	if _, err := store.GetRun(ctx, "zz"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirstAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		run := history.Run{ID: id, Protocol: "p", Kind: "extraction", NumSamples: 8, StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.StartRun(ctx, run); err != nil {
			t.Fatalf("StartRun %s failed: %v", id, err)
		}
	}
	if err := store.FinishRun(ctx, "first", history.Outcome{
		Status: history.StatusCompleted,
		Steps:  []history.Step{{Number: 1, Description: "Dispense", Executed: true}},
	}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "third" || runs[1].ID != "second" {
		t.Fatalf("unexpected order: %+v", runs)
	}

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	runs, err = store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(runs))
	}
}
