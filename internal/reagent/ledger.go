package reagent

import (
	"fmt"
	"log/slog"
	"sync"

	"liquidplan/internal/config"
	"liquidplan/internal/logging"
	"liquidplan/internal/services"
)

// Ledger owns the reagent reservoir and the reagents provisioned into it.
type Ledger struct {
	wells    int
	sizing   Sizing
	geometry Geometry
	logger   *slog.Logger
	recorder Recorder

	mu       sync.Mutex
	next     int
	order    []string
	reagents map[string]*Reagent
}

// NewLedger creates an empty ledger over a reservoir.
func NewLedger(reservoir config.Reservoir, columns, channelWidth int, logger *slog.Logger, recorder Recorder) *Ledger {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Ledger{
		wells: reservoir.Wells,
		sizing: Sizing{
			Columns:          columns,
			ChannelWidth:     channelWidth,
			ChannelMaxVolume: reservoir.ChannelMaxVolume,
		},
		geometry: Geometry{
			CrossSectionArea: reservoir.CrossSectionArea,
			MinHeight:        reservoir.MinHeight,
		},
		logger:   logger,
		recorder: recorder,
		reagents: make(map[string]*Reagent),
	}
}

// NewLedgerFromConfig builds a ledger and provisions every configured reagent
// in declaration order.
func NewLedgerFromConfig(cfg *config.Config, logger *slog.Logger, recorder Recorder) (*Ledger, error) {
	ledger := NewLedger(cfg.Reservoir, cfg.Columns(), cfg.Pipette.Channels, logger, recorder)
	for _, settings := range cfg.Reagents {
		if _, err := ledger.Provision(settings); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// Provision sizes a reagent and assigns it consecutive reservoir wells. A
// preferred first well at or below the last assigned well is moved to the next
// free one.
func (l *Ledger) Provision(settings config.Reagent) (*Reagent, error) {
	p, err := Size(settings, l.sizing)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.reagents[settings.Key]; exists {
		return nil, fmt.Errorf("%w: reagent %s provisioned twice", services.ErrLogic, settings.Key)
	}

	var wells []int
	if p.Channels > 0 {
		first := l.next + 1
		if settings.FirstWell > l.next {
			first = settings.FirstWell
		}
		last := first + p.Channels - 1
		if last > l.wells {
			return nil, &ReservoirFullError{Reagent: settings.Key, FirstWell: first, Channels: p.Channels, Wells: l.wells}
		}
		wells = make([]int, p.Channels)
		for i := range wells {
			wells[i] = first + i
		}
		l.next = last
	}

	r := newReagent(settings, p, l.sizing, l.geometry, wells, l.logger, l.recorder)
	l.reagents[settings.Key] = r
	l.order = append(l.order, settings.Key)

	if p.Channels > 0 {
		r.logger.Info("reagent provisioned",
			logging.Int("channels", p.Channels),
			logging.Int("first_well", wells[0]),
			logging.Float64("channel_volume_ul", p.NominalVolume),
			logging.Int("trips_per_column", p.TripsPerColumn),
		)
	} else {
		r.logger.Debug("reagent not provisioned", logging.String("reason", "no volume required"))
	}
	return r, nil
}

// Reagent returns the reagent provisioned under key.
func (l *Ledger) Reagent(key string) (*Reagent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.reagents[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown reagent %q", services.ErrConfiguration, key)
	}
	return r, nil
}

// NextFreeWell returns the 1-based number of the next unassigned well, or 0
// when the reservoir is full.
func (l *Ledger) NextFreeWell() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.next >= l.wells {
		return 0
	}
	return l.next + 1
}

// Statuses reports every reagent in provisioning order.
func (l *Ledger) Statuses() []Status {
	l.mu.Lock()
	reagents := make([]*Reagent, 0, len(l.order))
	for _, key := range l.order {
		reagents = append(reagents, l.reagents[key])
	}
	l.mu.Unlock()

	statuses := make([]Status, 0, len(reagents))
	for _, r := range reagents {
		statuses = append(statuses, r.Status())
	}
	return statuses
}
