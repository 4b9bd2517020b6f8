package reagent_test

import (
	"errors"
	"testing"

	"liquidplan/internal/config"
	"liquidplan/internal/logging"
	"liquidplan/internal/reagent"
	"liquidplan/internal/services"
)

type countingRecorder struct {
	aspirations int
	rollovers   map[string]int
}

func (c *countingRecorder) ObserveAspiration(string, float64, float64) { c.aspirations++ }

func (c *countingRecorder) ObserveRollover(key string, _ int) {
	if c.rollovers == nil {
		c.rollovers = make(map[string]int)
	}
	c.rollovers[key]++
}

func defaultConfig() *config.Config {
	cfg := config.Default()
	cfg.Reagents = config.DefaultExtractionReagents()
	for i := range cfg.Reagents {
		cfg.Reagents[i].MaxVolumeAllowed = cfg.Pipette.TipCapacity
	}
	return &cfg
}

func TestLedgerAssignsWellsFromPreferences(t *testing.T) {
	ledger, err := reagent.NewLedgerFromConfig(defaultConfig(), logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewLedgerFromConfig returned error: %v", err)
	}
	want := map[string][]int{
		config.ReagentBeads:   {1, 2},
		config.ReagentWash1:   {5, 6},
		config.ReagentWash2:   {9, 10},
		config.ReagentElution: {12},
	}
	for key, wells := range want {
		r, err := ledger.Reagent(key)
		if err != nil {
			t.Fatalf("Reagent(%q): %v", key, err)
		}
		if len(r.Wells) != len(wells) {
			t.Fatalf("%s wells = %v, want %v", key, r.Wells, wells)
		}
		for i := range wells {
			if r.Wells[i] != wells[i] {
				t.Fatalf("%s wells = %v, want %v", key, r.Wells, wells)
			}
		}
	}
	if ledger.NextFreeWell() != 0 {
		t.Fatalf("expected reservoir to be full, next free well %d", ledger.NextFreeWell())
	}
	statuses := ledger.Statuses()
	if len(statuses) != 4 || statuses[0].Key != config.ReagentBeads || statuses[3].Key != config.ReagentElution {
		t.Fatalf("unexpected status order %+v", statuses)
	}
}

func TestLedgerMovesTakenPreferenceToNextFreeWell(t *testing.T) {
	ledger := reagent.NewLedger(config.Default().Reservoir, 12, 8, nil, nil)
	beads := beadsSettings()
	if _, err := ledger.Provision(beads); err != nil {
		t.Fatalf("Provision beads: %v", err)
	}
	wash := beadsSettings()
	wash.Key = "wash1"
	wash.FirstWell = 1
	r, err := ledger.Provision(wash)
	if err != nil {
		t.Fatalf("Provision wash: %v", err)
	}
	if r.Wells[0] != 3 {
		t.Fatalf("expected wash moved to well 3, got %v", r.Wells)
	}
	if ledger.NextFreeWell() != 5 {
		t.Fatalf("expected next free well 5, got %d", ledger.NextFreeWell())
	}
}

func TestLedgerRejectsOverflowAndDuplicates(t *testing.T) {
	ledger := reagent.NewLedger(config.Default().Reservoir, 12, 8, nil, nil)
	late := beadsSettings()
	late.FirstWell = 12
	_, err := ledger.Provision(late)
	var full *reagent.ReservoirFullError
	if !errors.As(err, &full) {
		t.Fatalf("expected ReservoirFullError, got %v", err)
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatal("expected configuration marker")
	}

	if _, err := ledger.Provision(beadsSettings()); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if _, err := ledger.Provision(beadsSettings()); !errors.Is(err, services.ErrLogic) {
		t.Fatalf("expected logic error for duplicate, got %v", err)
	}
	if _, err := ledger.Reagent("unknown"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown reagent, got %v", err)
	}
}

func TestLedgerReportsToRecorder(t *testing.T) {
	recorder := &countingRecorder{}
	ledger, err := reagent.NewLedgerFromConfig(defaultConfig(), nil, recorder)
	if err != nil {
		t.Fatalf("NewLedgerFromConfig returned error: %v", err)
	}
	beads, _ := ledger.Reagent(config.ReagentBeads)
	for i := 0; i < 24; i++ {
		if _, err := beads.PlanAspiration(808); err != nil {
			t.Fatalf("trip %d: %v", i, err)
		}
	}
	if recorder.aspirations != 24 {
		t.Fatalf("expected 24 aspirations, got %d", recorder.aspirations)
	}
	if recorder.rollovers[config.ReagentBeads] != 1 {
		t.Fatalf("expected one rollover, got %v", recorder.rollovers)
	}
}
