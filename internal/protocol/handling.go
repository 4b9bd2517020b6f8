package protocol

import (
	"context"
	"fmt"

	"liquidplan/internal/config"
	"liquidplan/internal/liquid"
	"liquidplan/internal/tips"
)

func (s *Session) holding() bool {
	return s.tracker.Holding(s.pipette)
}

func (s *Session) pickUp(ctx context.Context) error {
	tip, err := s.tracker.Acquire(s.pipette)
	if err != nil {
		return err
	}
	s.airGap = 0
	return s.handler.PickUpTip(ctx, tipLocation(tip))
}

func (s *Session) pickUpParked(ctx context.Context, key tips.ParkKey) error {
	tip, err := s.tracker.AcquireParked(s.pipette, key)
	if err != nil {
		return err
	}
	s.airGap = 0
	return s.handler.PickUpTip(ctx, tipLocation(tip))
}

// ensureTip picks up a fresh tip unless one is held.
func (s *Session) ensureTip(ctx context.Context) error {
	if s.holding() {
		return nil
	}
	return s.pickUp(ctx)
}

// dropTip discards the held tip, or returns it to its slot on dry runs.
func (s *Session) dropTip(ctx context.Context) error {
	var err error
	if s.cfg.Tips.DryRunReturn {
		err = s.handler.ReturnTip(ctx)
	} else {
		err = s.handler.DropTip(ctx)
	}
	if err != nil {
		return err
	}
	s.airGap = 0
	return s.tracker.Drop(s.pipette)
}

func (s *Session) parkTip(ctx context.Context, key tips.ParkKey) error {
	if err := s.handler.ReturnTip(ctx); err != nil {
		return err
	}
	s.airGap = 0
	return s.tracker.Park(s.pipette, key)
}

// releaseTip parks the tip under key when recycling, otherwise drops it.
func (s *Session) releaseTip(ctx context.Context, recycle bool, key tips.ParkKey) error {
	if recycle {
		return s.parkTip(ctx, key)
	}
	return s.dropTip(ctx)
}

func (s *Session) airGapAfter(ctx context.Context, volume float64) error {
	if volume <= 0 {
		return nil
	}
	if err := s.handler.AirGap(ctx, volume, 0); err != nil {
		return err
	}
	s.airGap += volume
	return nil
}

// mix describes repeated aspirate/dispense cycles in one well.
type mix struct {
	Container  string
	Well       string
	Volume     float64
	Rounds     int
	Height     float64
	Offset     float64
	DropHeight float64
	// TwoThirdsBottom dispenses the first two thirds of the rounds near the
	// bottom of the well instead of below the top.
	TwoThirdsBottom bool
	BlowOut         bool
	Wait            int
}

func (s *Session) mix(ctx context.Context, liq config.Reagent, m mix) error {
	height := m.Height
	if height <= 0 {
		height = 1
	}
	at := liquid.BottomOf(m.Container, m.Well, height)
	if err := s.handler.Aspirate(ctx, 1, at, liq.FlowRateAspirateMix); err != nil {
		return err
	}
	bottomRounds := float64(m.Rounds) / 3 * 2
	for i := 0; i < m.Rounds; i++ {
		if err := s.handler.Aspirate(ctx, m.Volume, at, liq.FlowRateAspirateMix); err != nil {
			return err
		}
		drop := liquid.TopOf(m.Container, m.Well, m.DropHeight).Shift(m.Offset)
		if m.TwoThirdsBottom && float64(i) < bottomRounds {
			drop = liquid.BottomOf(m.Container, m.Well, 5).Shift(m.Offset)
		}
		if err := s.handler.Dispense(ctx, m.Volume, drop, liq.FlowRateDispenseMix); err != nil {
			return err
		}
	}
	if err := s.handler.Dispense(ctx, 1, at, liq.FlowRateDispenseMix); err != nil {
		return err
	}
	if m.BlowOut {
		if err := s.handler.BlowOut(ctx, liquid.TopOf(m.Container, m.Well, -2)); err != nil {
			return err
		}
	}
	s.delay(m.Wait, fmt.Sprintf("Waiting for %d seconds.", m.Wait))
	return nil
}

// transfer moves one trip from Source to Dest. Volume includes the disposal
// volume, which stays in the tip.
type transfer struct {
	Source liquid.Location
	Dest   liquid.Location
	Volume float64
	// BlowOut empties the tip at the destination height after dispensing.
	BlowOut bool
	Wait    int
	// ExpelAirGap dispenses a held air gap above the source before aspirating.
	ExpelAirGap bool
}

func (s *Session) move(ctx context.Context, liq config.Reagent, t transfer) error {
	if t.ExpelAirGap && s.airGap > 0 {
		above := liquid.TopOf(t.Source.Container, t.Source.Well, -2)
		if err := s.handler.Dispense(ctx, s.airGap, above, liq.FlowRateDispense); err != nil {
			return err
		}
		s.airGap = 0
	}
	if liq.AirGapTop > 0 {
		if err := s.handler.AirGap(ctx, liq.AirGapTop, 0); err != nil {
			return err
		}
	}
	if err := s.handler.Aspirate(ctx, t.Volume, t.Source, liq.FlowRateAspirate); err != nil {
		return err
	}
	if liq.AirGapBottom > 0 {
		if err := s.handler.AirGap(ctx, liq.AirGapBottom, 0); err != nil {
			return err
		}
	}
	if err := s.handler.Dispense(ctx, t.Volume-liq.DisposalVolume+liq.AirGapBottom, t.Dest, liq.FlowRateDispense); err != nil {
		return err
	}
	if liq.AirGapTop > 0 {
		top := liquid.TopOf(t.Dest.Container, t.Dest.Well, 0)
		if err := s.handler.Dispense(ctx, liq.AirGapTop, top, liq.FlowRateDispense); err != nil {
			return err
		}
	}
	if t.BlowOut {
		at := t.Dest
		at.X = 0
		if err := s.handler.BlowOut(ctx, at); err != nil {
			return err
		}
	}
	s.airGap = 0
	s.delay(t.Wait, fmt.Sprintf("Waiting for %d seconds.", t.Wait))
	return nil
}
