package tips

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"liquidplan/internal/logging"
)

// Pauser blocks until the operator resumes the run.
type Pauser interface {
	Pause(message string)
}

// Signals receives operator-facing tip events. Implementations must not block.
type Signals interface {
	TipRefillRequired(pipette string, refill, parked int)
	WasteBinFull(pipette string, dropped int)
}

// Pipette describes a pipette and the racks loaded for it.
type Pipette struct {
	Name        string
	Channels    int
	Racks       int
	TipCapacity float64
}

// Options configure a Tracker.
type Options struct {
	// WasteCapacity is the number of tips the waste bin holds.
	WasteCapacity int
	// DryRun returns every tip to its slot instead of dropping it.
	DryRun bool
}

type pipetteState struct {
	Pipette
	slotsPerRack int
	slots        []slotState
	tips         []*Tip
	parked       map[ParkKey]*Tip
	holding      *Tip
	counter      int
	refills      int
	dropped      int
	returned     int
}

func (s *pipetteState) max() int { return TipsPerRack * s.Racks }

// Tracker is the tip bookkeeping for every pipette in a run.
type Tracker struct {
	opts    Options
	pauser  Pauser
	signals Signals
	logger  *slog.Logger

	mu       sync.Mutex
	pipettes map[string]*pipetteState
}

// NewTracker creates a tracker. signals may be nil.
func NewTracker(opts Options, pauser Pauser, signals Signals, logger *slog.Logger) *Tracker {
	if opts.WasteCapacity <= 0 {
		opts.WasteCapacity = 3 * TipsPerRack
	}
	return &Tracker{
		opts:     opts,
		pauser:   pauser,
		signals:  signals,
		logger:   logging.NewComponentLogger(logger, "tips"),
		pipettes: make(map[string]*pipetteState),
	}
}

// Register loads fresh racks for a pipette.
func (t *Tracker) Register(p Pipette) error {
	if p.Channels < 1 {
		p.Channels = 1
	}
	if p.Racks < 1 {
		return fmt.Errorf("pipette %s needs at least one tip rack", p.Name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.pipettes[p.Name]; exists {
		return logicError(p.Name, "registered twice")
	}
	per := slotsPerRack(p.Channels)
	state := &pipetteState{
		Pipette:      p,
		slotsPerRack: per,
		slots:        make([]slotState, per*p.Racks),
		tips:         make([]*Tip, per*p.Racks),
		parked:       make(map[ParkKey]*Tip),
	}
	for i := range state.tips {
		state.tips[i] = &Tip{
			Pipette: p.Name,
			Rack:    i / per,
			Slot:    i % per,
			Well:    slotWell(i%per, p.Channels),
		}
	}
	t.pipettes[p.Name] = state
	return nil
}

func (t *Tracker) state(pipette string) (*pipetteState, error) {
	s, ok := t.pipettes[pipette]
	if !ok {
		return nil, logicError(pipette, "not registered")
	}
	return s, nil
}

// Holding reports whether the pipette currently carries a tip.
func (t *Tracker) Holding(pipette string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.pipettes[pipette]
	return ok && s.holding != nil
}

// Acquire picks up the next fresh tip. When the rack supply is spent the
// operator is asked to replace the racks and the call blocks until they do.
func (t *Tracker) Acquire(pipette string) (*Tip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.state(pipette)
	if err != nil {
		return nil, err
	}
	if s.holding != nil {
		return nil, logicError(pipette, "already holding tip at %s", s.holding)
	}

	slot := s.nextFresh()
	if s.counter >= s.max() || slot < 0 {
		t.refill(s)
		slot = s.nextFresh()
		if slot < 0 {
			return nil, fmt.Errorf("%w: pipette %s: all %d slots hold parked tips",
				ErrTipSupplyExhausted, pipette, len(s.slots))
		}
	}

	s.slots[slot] = slotInHand
	s.holding = s.tips[slot]
	t.logger.Debug("tip acquired",
		logging.String(logging.FieldPipette, pipette),
		logging.String("tip", s.holding.String()),
		logging.Int("tips_used", s.counter),
	)
	return s.holding, nil
}

// AcquireParked picks up the exact tip parked under key.
func (t *Tracker) AcquireParked(pipette string, key ParkKey) (*Tip, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.state(pipette)
	if err != nil {
		return nil, err
	}
	if s.holding != nil {
		return nil, logicError(pipette, "already holding tip at %s", s.holding)
	}
	tip, ok := s.parked[key]
	if !ok {
		return nil, &ParkedTipNotFoundError{Pipette: pipette, Key: key}
	}
	delete(s.parked, key)
	s.slots[s.index(tip)] = slotInHand
	s.holding = tip
	t.logger.Debug("parked tip retrieved",
		logging.String(logging.FieldPipette, pipette),
		logging.String("tip", tip.String()),
		logging.String("park_key", key.String()),
	)
	return tip, nil
}

// Release lets go of the held tip. Park mode remembers the tip under key;
// other modes ignore it. With Options.DryRun a drop becomes a return.
func (t *Tracker) Release(pipette string, mode Mode, key ParkKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.state(pipette)
	if err != nil {
		return err
	}
	tip := s.holding
	if tip == nil {
		return logicError(pipette, "%s requested without a tip", mode)
	}
	if mode == Drop && t.opts.DryRun {
		mode = Return
	}

	idx := s.index(tip)
	switch mode {
	case Drop:
		s.slots[idx] = slotUsed
		before := s.dropped
		s.counter += s.Channels
		s.dropped += s.Channels
		if before/t.opts.WasteCapacity < s.dropped/t.opts.WasteCapacity {
			logging.WarnWithContext(t.logger, "waste bin full", "waste_bin_full",
				logging.String(logging.FieldPipette, pipette),
				logging.Int("tips_dropped", s.dropped),
				logging.String(logging.FieldErrorHint, "empty the tip waste bin"),
			)
			if t.signals != nil {
				t.signals.WasteBinFull(pipette, s.dropped)
			}
		}
	case Return:
		s.slots[idx] = slotFresh
		s.returned += s.Channels
	case Park:
		if _, exists := s.parked[key]; exists {
			return logicError(pipette, "a tip is already parked for %s", key)
		}
		s.slots[idx] = slotParked
		s.parked[key] = tip
		t.logger.Debug("tip parked",
			logging.String(logging.FieldPipette, pipette),
			logging.String("tip", tip.String()),
			logging.String("park_key", key.String()),
		)
	default:
		return logicError(pipette, "unknown release mode %d", int(mode))
	}
	s.holding = nil
	return nil
}

// Drop discards the held tip.
func (t *Tracker) Drop(pipette string) error {
	return t.Release(pipette, Drop, ParkKey{})
}

// Park returns the held tip to its slot and remembers it under key.
func (t *Tracker) Park(pipette string, key ParkKey) error {
	return t.Release(pipette, Park, key)
}

func (t *Tracker) refill(s *pipetteState) {
	parked := len(s.parked)
	message := fmt.Sprintf("Replace the %g uL tip racks for %s before resuming.", s.TipCapacity, s.Name)
	if parked > 0 {
		message += fmt.Sprintf(" Leave the %d parked tip(s) in place.", parked*s.Channels)
	}

	t.logger.Info("tip rack refill required",
		logging.Args(append(logging.DecisionAttrs("tip_refill", "pause", ErrTipSupplyExhausted.Error()),
			logging.String(logging.FieldPipette, s.Name),
			logging.Int("tips_used", s.counter),
			logging.Int("refill", s.refills+1),
			logging.Int("parked_slots", parked),
		)...)...)
	if t.signals != nil {
		t.signals.TipRefillRequired(s.Name, s.refills+1, parked)
	}
	if t.pauser != nil {
		t.pauser.Pause(message)
	}

	for i, state := range s.slots {
		if state == slotUsed {
			s.slots[i] = slotFresh
		}
	}
	s.counter = 0
	s.refills++
}

func (s *pipetteState) nextFresh() int {
	for i, state := range s.slots {
		if state == slotFresh {
			return i
		}
	}
	return -1
}

func (s *pipetteState) index(tip *Tip) int {
	return tip.Rack*s.slotsPerRack + tip.Slot
}

// Report summarizes tip consumption for one pipette.
type Report struct {
	Pipette  string  `json:"pipette" yaml:"pipette"`
	Used     int     `json:"used" yaml:"used"`
	Racks    float64 `json:"racks" yaml:"racks"`
	Refills  int     `json:"refills" yaml:"refills"`
	Dropped  int     `json:"dropped" yaml:"dropped"`
	Returned int     `json:"returned" yaml:"returned"`
	Parked   int     `json:"parked" yaml:"parked"`
}

// Reports returns tip consumption for every pipette, ordered by name.
func (t *Tracker) Reports() []Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.pipettes))
	for name := range t.pipettes {
		names = append(names, name)
	}
	sort.Strings(names)

	reports := make([]Report, 0, len(names))
	for _, name := range names {
		s := t.pipettes[name]
		used := s.refills*s.max() + s.counter
		reports = append(reports, Report{
			Pipette:  name,
			Used:     used,
			Racks:    float64(used) / TipsPerRack,
			Refills:  s.refills,
			Dropped:  s.dropped,
			Returned: s.returned,
			Parked:   len(s.parked) * s.Channels,
		})
	}
	return reports
}
