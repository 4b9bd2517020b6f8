package tips_test

import (
	"errors"
	"strings"
	"testing"

	"liquidplan/internal/logging"
	"liquidplan/internal/services"
	"liquidplan/internal/tips"
)

type recordingPauser struct {
	messages []string
}

func (p *recordingPauser) Pause(message string) { p.messages = append(p.messages, message) }

type recordingSignals struct {
	refills []int
	waste   []int
}

func (s *recordingSignals) TipRefillRequired(_ string, refill, _ int) {
	s.refills = append(s.refills, refill)
}

func (s *recordingSignals) WasteBinFull(_ string, dropped int) { s.waste = append(s.waste, dropped) }

func newTracker(t *testing.T, p tips.Pipette, opts tips.Options) (*tips.Tracker, *recordingPauser, *recordingSignals) {
	t.Helper()
	pauser := &recordingPauser{}
	signals := &recordingSignals{}
	tracker := tips.NewTracker(opts, pauser, signals, logging.NewNop())
	if err := tracker.Register(p); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return tracker, pauser, signals
}

func cycle(t *testing.T, tracker *tips.Tracker, pipette string) *tips.Tip {
	t.Helper()
	tip, err := tracker.Acquire(pipette)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := tracker.Drop(pipette); err != nil {
		t.Fatalf("Drop returned error: %v", err)
	}
	return tip
}

func TestNinetySeventhAcquireRefillsOnce(t *testing.T) {
	single := tips.Pipette{Name: "p20_single", Channels: 1, Racks: 1, TipCapacity: 20}
	tracker, pauser, signals := newTracker(t, single, tips.Options{})

	for i := 0; i < 96; i++ {
		cycle(t, tracker, single.Name)
	}
	if len(pauser.messages) != 0 {
		t.Fatalf("expected no pause before the 97th tip, got %d", len(pauser.messages))
	}

	tip := cycle(t, tracker, single.Name)
	if len(pauser.messages) != 1 {
		t.Fatalf("expected exactly one refill pause, got %d", len(pauser.messages))
	}
	if tip.Well != "A1" || tip.Rack != 0 {
		t.Fatalf("expected refilled rack to start at A1, got %s", tip)
	}
	if len(signals.refills) != 1 || signals.refills[0] != 1 {
		t.Fatalf("unexpected refill signals %v", signals.refills)
	}

	report := tracker.Reports()[0]
	if report.Refills != 1 || report.Used != 97 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSingleChannelOrderIsColumnMajor(t *testing.T) {
	single := tips.Pipette{Name: "p300_single", Channels: 1, Racks: 1}
	tracker, _, _ := newTracker(t, single, tips.Options{})

	want := []string{"A1", "B1", "C1", "D1", "E1", "F1", "G1", "H1", "A2"}
	for i, well := range want {
		tip := cycle(t, tracker, single.Name)
		if tip.Well != well {
			t.Fatalf("tip %d at %s, want %s", i, tip.Well, well)
		}
	}
}

func TestDropIncrementsUsageByWidth(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 2, TipCapacity: 180}
	tracker, _, _ := newTracker(t, multi, tips.Options{})

	first := cycle(t, tracker, multi.Name)
	second := cycle(t, tracker, multi.Name)
	if first.Well != "A1" || second.Well != "A2" {
		t.Fatalf("unexpected tip order %s, %s", first, second)
	}
	report := tracker.Reports()[0]
	if report.Used != 16 || report.Dropped != 16 {
		t.Fatalf("expected 16 tips used, got %+v", report)
	}
	if report.Racks != 16.0/96 {
		t.Fatalf("unexpected racks equivalent %v", report.Racks)
	}

	for i := 0; i < 22; i++ {
		cycle(t, tracker, multi.Name)
	}
	last := tracker.Reports()[0]
	if last.Used != 192 || last.Refills != 0 {
		t.Fatalf("expected both racks used without refill, got %+v", last)
	}
}

func TestParkAndRetrieveReturnsIdenticalTip(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 1, TipCapacity: 180}
	tracker, _, _ := newTracker(t, multi, tips.Options{})

	key := tips.ParkKey{Phase: "wash1", Column: 3}
	parked, err := tracker.Acquire(multi.Name)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := tracker.Park(multi.Name, key); err != nil {
		t.Fatalf("Park: %v", err)
	}
	if tracker.Reports()[0].Used != 0 {
		t.Fatal("parking must not count as usage")
	}
	if tracker.Holding(multi.Name) {
		t.Fatal("pipette should be empty after parking")
	}

	next := cycle(t, tracker, multi.Name)
	if next == parked {
		t.Fatal("parked tip must not be handed out as fresh")
	}

	retrieved, err := tracker.AcquireParked(multi.Name, key)
	if err != nil {
		t.Fatalf("AcquireParked: %v", err)
	}
	if retrieved != parked {
		t.Fatalf("retrieved %s, want the parked %s", retrieved, parked)
	}
	if err := tracker.Drop(multi.Name); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if used := tracker.Reports()[0].Used; used != 16 {
		t.Fatalf("expected 16 tips used, got %d", used)
	}

	_, err = tracker.AcquireParked(multi.Name, key)
	var notFound *tips.ParkedTipNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ParkedTipNotFoundError on second retrieval, got %v", err)
	}
	if !errors.Is(err, services.ErrLogic) {
		t.Fatal("expected logic marker")
	}
}

func TestRefillSkipsParkedSlots(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 1, TipCapacity: 180}
	tracker, pauser, _ := newTracker(t, multi, tips.Options{})

	var parked []*tips.Tip
	for col := 0; col < 4; col++ {
		tip, err := tracker.Acquire(multi.Name)
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		parked = append(parked, tip)
		if err := tracker.Park(multi.Name, tips.ParkKey{Phase: "elution", Column: col}); err != nil {
			t.Fatalf("Park: %v", err)
		}
	}
	for i := 0; i < 8; i++ {
		cycle(t, tracker, multi.Name)
	}

	tip := cycle(t, tracker, multi.Name)
	if len(pauser.messages) != 1 {
		t.Fatalf("expected one refill pause, got %d", len(pauser.messages))
	}
	if !strings.Contains(pauser.messages[0], "32 parked tip(s)") {
		t.Fatalf("pause message should mention parked tips: %q", pauser.messages[0])
	}
	if tip.Well != "A5" {
		t.Fatalf("expected first non-parked slot A5 after refill, got %s", tip.Well)
	}
	for _, p := range parked {
		if p == tip {
			t.Fatal("refill handed out a parked tip")
		}
	}
}

func TestAllSlotsParkedIsExhausted(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 1}
	tracker, _, _ := newTracker(t, multi, tips.Options{})
	for col := 0; col < 12; col++ {
		if _, err := tracker.Acquire(multi.Name); err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		if err := tracker.Park(multi.Name, tips.ParkKey{Phase: "wash1", Column: col}); err != nil {
			t.Fatalf("Park: %v", err)
		}
	}
	if _, err := tracker.Acquire(multi.Name); !errors.Is(err, tips.ErrTipSupplyExhausted) {
		t.Fatalf("expected ErrTipSupplyExhausted, got %v", err)
	}
}

func TestWasteWarningEveryCapacity(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 7}
	tracker, _, signals := newTracker(t, multi, tips.Options{WasteCapacity: 288})

	for i := 0; i < 72; i++ {
		cycle(t, tracker, multi.Name)
	}
	if len(signals.waste) != 2 || signals.waste[0] != 288 || signals.waste[1] != 576 {
		t.Fatalf("expected waste warnings at 288 and 576, got %v", signals.waste)
	}
}

func TestDryRunReturnsTips(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 1}
	tracker, pauser, _ := newTracker(t, multi, tips.Options{DryRun: true})

	for i := 0; i < 30; i++ {
		tip := cycle(t, tracker, multi.Name)
		if tip.Well != "A1" {
			t.Fatalf("dry run should reuse A1, got %s", tip.Well)
		}
	}
	report := tracker.Reports()[0]
	if report.Used != 0 || report.Returned != 240 || len(pauser.messages) != 0 {
		t.Fatalf("unexpected dry run report %+v", report)
	}
}

func TestMisuseIsLogicError(t *testing.T) {
	multi := tips.Pipette{Name: "p300_multi", Channels: 8, Racks: 1}
	tracker, _, _ := newTracker(t, multi, tips.Options{})

	if err := tracker.Drop(multi.Name); !errors.Is(err, services.ErrLogic) {
		t.Fatalf("expected logic error dropping without a tip, got %v", err)
	}
	if _, err := tracker.Acquire(multi.Name); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := tracker.Acquire(multi.Name); !errors.Is(err, services.ErrLogic) {
		t.Fatalf("expected logic error acquiring twice, got %v", err)
	}
	if _, err := tracker.Acquire("p1000"); !errors.Is(err, services.ErrLogic) {
		t.Fatalf("expected logic error for unknown pipette, got %v", err)
	}
	if err := tracker.Register(multi); !errors.Is(err, services.ErrLogic) {
		t.Fatalf("expected logic error registering twice, got %v", err)
	}
}
