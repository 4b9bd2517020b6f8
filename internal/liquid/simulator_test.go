package liquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"liquidplan/internal/logging"
	"liquidplan/internal/services"
)

func TestSimulatorTracksTipAndVolume(t *testing.T) {
	ctx := services.WithStep(context.Background(), 3)
	var journal bytes.Buffer
	sim := NewSimulator(SimulatorOptions{Pipette: "p300_multi_gen2", Journal: &journal, Logger: logging.NewNop()})

	src := BottomOf("deepwell", "A1", 0.5)
	if err := sim.Aspirate(ctx, 100, src, 25); err == nil {
		t.Fatal("expected error aspirating without a tip")
	} else if !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected collaborator marker, got %v", err)
	}

	if err := sim.PickUpTip(ctx, TopOf("tiprack-1", "A1", 0)); err != nil {
		t.Fatalf("PickUpTip: %v", err)
	}
	if err := sim.Aspirate(ctx, 101, src, 25); err != nil {
		t.Fatalf("Aspirate: %v", err)
	}
	if err := sim.AirGap(ctx, 5, 0); err != nil {
		t.Fatalf("AirGap: %v", err)
	}
	if err := sim.Dispense(ctx, 105, TopOf("waste", "A1", 0), 100); err != nil {
		t.Fatalf("Dispense: %v", err)
	}
	if err := sim.Dispense(ctx, 5, TopOf("waste", "A1", 0), 100); err == nil {
		t.Fatal("expected error dispensing more than held")
	}
	if err := sim.BlowOut(ctx, TopOf("waste", "A1", 0)); err != nil {
		t.Fatalf("BlowOut: %v", err)
	}
	if err := sim.DropTip(ctx); err != nil {
		t.Fatalf("DropTip: %v", err)
	}
	if sim.HasTip() {
		t.Fatal("expected no tip after drop")
	}
	if sim.Count(KindAspirate) != 1 || sim.Count(KindDropTip) != 1 {
		t.Fatalf("unexpected operation counts in %+v", sim.Operations())
	}

	lines := strings.Split(strings.TrimSpace(journal.String()), "\n")
	if len(lines) != len(sim.Operations()) {
		t.Fatalf("journal has %d lines, want %d", len(lines), len(sim.Operations()))
	}
	var op Operation
	if err := json.Unmarshal([]byte(lines[1]), &op); err != nil {
		t.Fatalf("decode journal line: %v", err)
	}
	if op.Kind != KindAspirate || op.Step != 3 || op.Volume != 101 {
		t.Fatalf("unexpected journal entry %+v", op)
	}
	if !strings.Contains(lines[1], `"reference":"bottom"`) {
		t.Fatalf("expected textual reference in journal: %s", lines[1])
	}
}

func TestSimulatorMagnetAndCancellation(t *testing.T) {
	sim := NewSimulator(SimulatorOptions{Pipette: "m300"})
	ctx, cancel := context.WithCancel(context.Background())
	if err := sim.EngageMagnet(ctx, 6); err != nil {
		t.Fatalf("EngageMagnet: %v", err)
	}
	if !sim.MagnetEngaged() {
		t.Fatal("expected magnet engaged")
	}
	cancel()
	if err := sim.DisengageMagnet(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestLocationString(t *testing.T) {
	got := BottomOf("reservoir", "A3", 1.5).Shift(-2).String()
	if got != "reservoir A3 bottom+1.50 x-2.00" {
		t.Fatalf("unexpected location string %q", got)
	}
}

func TestConsoleWaiterPausesUntilEnter(t *testing.T) {
	var slept []time.Duration
	var out bytes.Buffer
	w := newConsoleWaiter(strings.NewReader("\n"), &out, true, logging.NewNop(), func(d time.Duration) {
		slept = append(slept, d)
	})

	w.Delay(0, "skip")
	w.Delay(300, "drying")
	if len(slept) != 1 || slept[0] != 300*time.Second {
		t.Fatalf("unexpected sleeps %v", slept)
	}

	w.Pause("Replace tip racks")
	if !strings.Contains(out.String(), "Replace tip racks") {
		t.Fatalf("expected prompt in output, got %q", out.String())
	}
}

func TestConsoleWaiterNonInteractiveContinues(t *testing.T) {
	var out bytes.Buffer
	w := newConsoleWaiter(nil, &out, false, nil, func(time.Duration) {})
	w.Pause("Replace tip racks")
	if out.Len() != 0 {
		t.Fatalf("expected no prompt when not interactive, got %q", out.String())
	}
}

func TestRecordingWaiter(t *testing.T) {
	w := &RecordingWaiter{}
	w.Delay(600, "magnet")
	w.Delay(300, "drying")
	w.Pause("refill")
	if w.TotalDelay() != 900*time.Second {
		t.Fatalf("unexpected total delay %v", w.TotalDelay())
	}
	if len(w.Pauses()) != 1 || len(w.Delays()) != 2 {
		t.Fatalf("unexpected recordings %v %v", w.Delays(), w.Pauses())
	}
}
