package liquid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"liquidplan/internal/logging"
	"liquidplan/internal/services"
)

const volumeTolerance = 1e-6

// Kind names a collaborator operation.
type Kind string

const (
	KindAspirate        Kind = "aspirate"
	KindDispense        Kind = "dispense"
	KindBlowOut         Kind = "blow_out"
	KindTouchTip        Kind = "touch_tip"
	KindAirGap          Kind = "air_gap"
	KindPickUpTip       Kind = "pick_up_tip"
	KindDropTip         Kind = "drop_tip"
	KindReturnTip       Kind = "return_tip"
	KindEngageMagnet    Kind = "engage_magnet"
	KindDisengageMagnet Kind = "disengage_magnet"
	KindSetTemperature  Kind = "set_temperature"
)

// Operation is one recorded collaborator call.
type Operation struct {
	Seq     int       `json:"seq"`
	Pipette string    `json:"pipette,omitempty"`
	Kind    Kind      `json:"kind"`
	Volume  float64   `json:"volume,omitempty"`
	Rate    float64   `json:"rate,omitempty"`
	Height  float64   `json:"height,omitempty"`
	At      *Location `json:"at,omitempty"`
	Step    int       `json:"step,omitempty"`
}

// SimulatorOptions configure a Simulator.
type SimulatorOptions struct {
	Pipette string
	// Journal receives every operation as one JSON object per line.
	Journal io.Writer
	Logger  *slog.Logger
}

// Simulator is an in-process Handler that validates tip and volume
// bookkeeping.
type Simulator struct {
	opts    SimulatorOptions
	logger  *slog.Logger
	encoder *json.Encoder

	mu          sync.Mutex
	ops         []Operation
	hasTip      bool
	held        float64
	magnet      bool
	temperature float64
}

// NewSimulator creates a simulator for one pipette.
func NewSimulator(opts SimulatorOptions) *Simulator {
	s := &Simulator{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "liquid"),
	}
	if opts.Journal != nil {
		s.encoder = json.NewEncoder(opts.Journal)
	}
	return s
}

func (s *Simulator) fail(ctx context.Context, kind Kind, format string, args ...any) error {
	step := ""
	if n, ok := services.StepFromContext(ctx); ok {
		step = fmt.Sprintf("step %d", n)
	}
	return services.Wrap(services.ErrCollaborator, step, string(kind), fmt.Sprintf(format, args...), nil)
}

func (s *Simulator) record(ctx context.Context, op Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	op.Seq = len(s.ops) + 1
	op.Pipette = s.opts.Pipette
	if n, ok := services.StepFromContext(ctx); ok {
		op.Step = n
	}
	s.ops = append(s.ops, op)
	if s.encoder != nil {
		if err := s.encoder.Encode(op); err != nil {
			return fmt.Errorf("write command journal: %w", err)
		}
	}
	return nil
}

func (s *Simulator) requireTip(ctx context.Context, kind Kind) error {
	if !s.hasTip {
		return s.fail(ctx, kind, "pipette %s has no tip", s.opts.Pipette)
	}
	return nil
}

func (s *Simulator) Aspirate(ctx context.Context, volume float64, at Location, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTip(ctx, KindAspirate); err != nil {
		return err
	}
	if volume < 0 {
		return s.fail(ctx, KindAspirate, "negative volume %.2f", volume)
	}
	s.held += volume
	return s.record(ctx, Operation{Kind: KindAspirate, Volume: volume, Rate: rate, At: &at})
}

func (s *Simulator) Dispense(ctx context.Context, volume float64, at Location, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTip(ctx, KindDispense); err != nil {
		return err
	}
	if volume > s.held+volumeTolerance {
		return s.fail(ctx, KindDispense, "dispense %.2f uL with %.2f uL in tip", volume, s.held)
	}
	s.held = max(s.held-volume, 0)
	return s.record(ctx, Operation{Kind: KindDispense, Volume: volume, Rate: rate, At: &at})
}

func (s *Simulator) BlowOut(ctx context.Context, at Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTip(ctx, KindBlowOut); err != nil {
		return err
	}
	s.held = 0
	return s.record(ctx, Operation{Kind: KindBlowOut, At: &at})
}

func (s *Simulator) TouchTip(ctx context.Context, opts TouchTip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTip(ctx, KindTouchTip); err != nil {
		return err
	}
	return s.record(ctx, Operation{Kind: KindTouchTip, Rate: opts.Speed, Height: opts.VOffset})
}

func (s *Simulator) AirGap(ctx context.Context, volume, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTip(ctx, KindAirGap); err != nil {
		return err
	}
	s.held += volume
	return s.record(ctx, Operation{Kind: KindAirGap, Volume: volume, Height: height})
}

func (s *Simulator) PickUpTip(ctx context.Context, at Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasTip {
		return s.fail(ctx, KindPickUpTip, "pipette %s already has a tip", s.opts.Pipette)
	}
	s.hasTip = true
	s.held = 0
	return s.record(ctx, Operation{Kind: KindPickUpTip, At: &at})
}

func (s *Simulator) DropTip(ctx context.Context) error {
	return s.releaseTip(ctx, KindDropTip)
}

func (s *Simulator) ReturnTip(ctx context.Context) error {
	return s.releaseTip(ctx, KindReturnTip)
}

func (s *Simulator) releaseTip(ctx context.Context, kind Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireTip(ctx, kind); err != nil {
		return err
	}
	s.hasTip = false
	s.held = 0
	return s.record(ctx, Operation{Kind: kind})
}

func (s *Simulator) EngageMagnet(ctx context.Context, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.magnet = true
	return s.record(ctx, Operation{Kind: KindEngageMagnet, Height: height})
}

func (s *Simulator) DisengageMagnet(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.magnet = false
	return s.record(ctx, Operation{Kind: KindDisengageMagnet})
}

func (s *Simulator) SetTemperature(ctx context.Context, celsius float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = celsius
	s.logger.Debug("temperature module set", logging.Float64("celsius", celsius))
	return s.record(ctx, Operation{Kind: KindSetTemperature, Height: celsius})
}

// Operations returns a copy of the recorded history.
func (s *Simulator) Operations() []Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Operation, len(s.ops))
	copy(out, s.ops)
	return out
}

// Count returns how many operations of kind were recorded.
func (s *Simulator) Count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, op := range s.ops {
		if op.Kind == kind {
			n++
		}
	}
	return n
}

// MagnetEngaged reports the magnetic module state.
func (s *Simulator) MagnetEngaged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.magnet
}

// HasTip reports whether the pipette holds a tip.
func (s *Simulator) HasTip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasTip
}
