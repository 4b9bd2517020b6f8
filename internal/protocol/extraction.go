package protocol

import (
	"context"
	"fmt"
	"math"

	"liquidplan/internal/config"
	"liquidplan/internal/liquid"
	"liquidplan/internal/logging"
	"liquidplan/internal/services"
	"liquidplan/internal/tips"
)

const (
	deepwellDropHeight     = 10.0
	wasteDropHeight        = 0.0
	elutionDropHeight      = -35.0
	finalPlateDropHeight   = -1.0
	mixDropHeight          = -1.0
	reservoirMixHeight     = 1.5
	washMixHeight          = 1.5
	deepwellMixHeight      = 1.0
	supernatantHeight      = 0.5
	eluatePickupHeight     = 1.0
	deepwellMixWaitSeconds = 2
	supernatantWaitSeconds = 2
	largeTipCapacity       = 200.0
)

// extraction is the Station B magnetic bead RNA extraction.
type extraction struct {
	cfg    *config.Config
	sample config.Reagent
	// mixOffset shifts dispenses away from the pellet side; pelletOffset
	// aspirates supernatant from the side opposite the pellet.
	mixOffset    float64
	pelletOffset float64
}

func newExtraction(cfg *config.Config) *extraction {
	e := &extraction{
		cfg: cfg,
		sample: config.Reagent{
			Key:                 "sample",
			Name:                "Sample",
			VolumePerSample:     cfg.Protocol.SampleVolume,
			MaxVolumeAllowed:    cfg.Pipette.TipCapacity,
			DisposalVolume:      1,
			FlowRateAspirate:    5,
			FlowRateDispense:    100,
			FlowRateAspirateMix: 1,
			FlowRateDispenseMix: 1,
			AirGapBottom:        5,
		},
		mixOffset:    2.5,
		pelletOffset: 2,
	}
	if cfg.Pipette.TipCapacity > largeTipCapacity {
		e.mixOffset = 2
		e.pelletOffset = 1.1
	}
	return e
}

func (e *extraction) Name() string { return e.cfg.Protocol.Name }

func (e *extraction) Kind() string { return config.ProtocolExtraction }

func (e *extraction) Steps() []Definition {
	return []Definition{
		{Number: 1, Description: "Transfer magnetic beads", Run: e.transferBeads},
		{Number: 2, Description: "Incubate with magnet engaged", WaitSeconds: 600, Run: e.incubate},
		{Number: 3, Description: "Discard supernatant", Run: e.discardBeadSupernatant},
		{Number: 4, Description: "Disengage magnet", Run: e.disengage},
		{Number: 5, Description: "Transfer wash 1", Run: e.transferWash(config.ReagentWash1)},
		{Number: 6, Description: "Incubate with magnet engaged", WaitSeconds: 300, Run: e.incubate},
		{Number: 7, Description: "Discard supernatant", Run: e.discardWashSupernatant(config.ReagentWash1)},
		{Number: 8, Description: "Disengage magnet", Run: e.disengage},
		{Number: 9, Description: "Transfer wash 2", Run: e.transferWash(config.ReagentWash2)},
		{Number: 10, Description: "Incubate with magnet engaged", WaitSeconds: 300, Run: e.incubate},
		{Number: 11, Description: "Discard supernatant", Run: e.discardWashSupernatant(config.ReagentWash2)},
		{Number: 12, Description: "Dry beads", WaitSeconds: 300, Run: e.dry},
		{Number: 13, Description: "Disengage magnet", Run: e.disengage},
		{Number: 14, Description: "Transfer elution buffer", Run: e.transferElution},
		{Number: 15, Description: "Incubate with magnet engaged", WaitSeconds: 300, Run: e.incubate},
		{Number: 16, Description: "Transfer eluate to final plate", Run: e.transferEluate},
	}
}

func (e *extraction) Begin(ctx context.Context, s *Session) error {
	return s.handler.DisengageMagnet(ctx)
}

func (e *extraction) Finish(ctx context.Context, s *Session) error {
	return s.handler.DisengageMagnet(ctx)
}

func (e *extraction) incubate(ctx context.Context, s *Session, wait int) error {
	if err := s.handler.EngageMagnet(ctx, e.cfg.Protocol.MagnetHeight); err != nil {
		return err
	}
	s.delay(wait, fmt.Sprintf("Incubating with the magnet engaged for %d seconds.", wait))
	return nil
}

func (e *extraction) disengage(ctx context.Context, s *Session, _ int) error {
	return s.handler.DisengageMagnet(ctx)
}

func (e *extraction) dry(_ context.Context, s *Session, wait int) error {
	s.delay(wait, fmt.Sprintf("Drying for %d seconds.", wait))
	return nil
}

// transferBeads re-suspends the bead channel before every trip: thoroughly on
// a channel's first use, briefly otherwise.
func (e *extraction) transferBeads(ctx context.Context, s *Session, _ int) error {
	beads, err := s.reagent(ctx, config.ReagentBeads)
	if err != nil || beads == nil {
		return err
	}
	trips, aspirate, _ := beads.TripVolume()
	required := aspirate * float64(beads.ChannelWidth)
	liq := beads.Settings

	for col := 0; col < e.cfg.Columns(); col++ {
		colCtx := services.WithColumn(ctx, col)
		if err := s.pickUp(colCtx); err != nil {
			return err
		}
		dest := liquid.TopOf(ContainerDeepwell, columnWell(col), deepwellDropHeight)
		for trip := 0; trip < trips; trip++ {
			plan, err := s.plan(colCtx, beads, col, trip, required)
			if err != nil {
				return err
			}
			well := reservoirWell(plan.Well)
			channelMix := mix{
				Container:  ContainerReservoir,
				Well:       well,
				Volume:     liq.MaxVolumeAllowed,
				Rounds:     e.cfg.Protocol.BeadsWellMixes,
				Height:     math.Min(reservoirMixHeight, plan.Height),
				DropHeight: mixDropHeight,
			}
			if plan.ChannelChanged || plan.FirstAccess {
				channelMix.Rounds = e.cfg.Protocol.BeadsWellFirstMixes
				channelMix.Height = reservoirMixHeight
				logging.WithContext(colCtx, s.logger).Debug("mixing fresh bead channel", logging.Int("well", plan.Well))
			}
			if err := s.mix(colCtx, liq, channelMix); err != nil {
				return err
			}
			if err := s.move(colCtx, liq, transfer{
				Source:  liquid.BottomOf(ContainerReservoir, well, plan.Height),
				Dest:    dest,
				Volume:  aspirate,
				BlowOut: true,
			}); err != nil {
				return err
			}
		}
		if rounds := e.cfg.Protocol.BeadsMixes; rounds > 0 {
			if err := s.mix(colCtx, liq, mix{
				Container:  ContainerDeepwell,
				Well:       columnWell(col),
				Volume:     math.Min(liq.MaxVolumeAllowed, e.sample.VolumePerSample+liq.VolumePerSample),
				Rounds:     rounds,
				Height:     deepwellMixHeight,
				DropHeight: mixDropHeight,
				Wait:       deepwellMixWaitSeconds,
			}); err != nil {
				return err
			}
		}
		if err := s.airGapAfter(colCtx, liq.AirGapBottom); err != nil {
			return err
		}
		if err := s.dropTip(colCtx); err != nil {
			return err
		}
	}
	return nil
}

// discardBeadSupernatant removes the sample and bead buffer, overdrawing each
// trip to leave the pellet dry.
func (e *extraction) discardBeadSupernatant(ctx context.Context, s *Session, _ int) error {
	liq := e.sample
	if beads, err := s.ledger.Reagent(config.ReagentBeads); err == nil {
		liq.FlowRateAspirate = beads.Settings.FlowRateAspirate
		liq.FlowRateDispense = beads.Settings.FlowRateDispense
		liq.AirGapBottom = beads.Settings.AirGapBottom
		liq.AirGapTop = beads.Settings.AirGapTop
		liq.DisposalVolume = beads.Settings.DisposalVolume
		liq.VolumePerSample += beads.Settings.VolumePerSample
	}
	trips := tripsFor(liq.VolumePerSample, e.sample.MaxVolumeAllowed)
	volume := e.sample.MaxVolumeAllowed + e.sample.DisposalVolume
	return e.removeSupernatant(ctx, s, liq, trips, volume, true, "")
}

func (e *extraction) discardWashSupernatant(key string) RunFunc {
	return func(ctx context.Context, s *Session, _ int) error {
		wash, err := s.ledger.Reagent(key)
		if err != nil {
			return err
		}
		trips := tripsFor(wash.Settings.VolumePerSample, wash.Settings.MaxVolumeAllowed)
		volume := wash.Settings.MaxVolumeAllowed + e.sample.DisposalVolume
		park := ""
		if e.cfg.Protocol.TipRecyclingInWash && wash.Provisioned() {
			park = key
		}
		return e.removeSupernatant(ctx, s, e.sample, trips, volume, false, park)
	}
}

// removeSupernatant empties every deepwell column into the waste. A non-empty
// parkPhase reuses the tip parked for that column by the phase.
func (e *extraction) removeSupernatant(ctx context.Context, s *Session, liq config.Reagent, trips int, volume float64, blowOut bool, parkPhase string) error {
	waste := liquid.TopOf(ContainerWaste, "A1", wasteDropHeight)
	for col := 0; col < e.cfg.Columns(); col++ {
		colCtx := services.WithColumn(ctx, col)
		if !s.holding() {
			var err error
			if parkPhase != "" {
				err = s.pickUpParked(colCtx, tips.ParkKey{Phase: parkPhase, Column: col})
			} else {
				err = s.pickUp(colCtx)
			}
			if err != nil {
				return err
			}
		}
		source := liquid.BottomOf(ContainerDeepwell, columnWell(col), supernatantHeight).Shift(side(col) * e.pelletOffset)
		for trip := 0; trip < trips; trip++ {
			if err := s.move(colCtx, liq, transfer{
				Source:      source,
				Dest:        waste,
				Volume:      volume,
				BlowOut:     blowOut,
				Wait:        supernatantWaitSeconds,
				ExpelAirGap: true,
			}); err != nil {
				return err
			}
			if err := s.airGapAfter(colCtx, e.sample.AirGapBottom); err != nil {
				return err
			}
		}
		if err := s.dropTip(colCtx); err != nil {
			return err
		}
	}
	return nil
}

func (e *extraction) transferWash(key string) RunFunc {
	return func(ctx context.Context, s *Session, _ int) error {
		rounds := e.cfg.Protocol.Wash1Mixes
		if key == config.ReagentWash2 {
			rounds = e.cfg.Protocol.Wash2Mixes
		}
		return e.transferBuffer(ctx, s, key, bufferTransfer{
			DropHeight:      deepwellDropHeight,
			MixRounds:       rounds,
			MixHeight:       washMixHeight,
			MixDropHeight:   mixDropHeight,
			TwoThirdsBottom: true,
			Recycle:         e.cfg.Protocol.TipRecyclingInWash,
		})
	}
}

func (e *extraction) transferElution(ctx context.Context, s *Session, _ int) error {
	return e.transferBuffer(ctx, s, config.ReagentElution, bufferTransfer{
		DropHeight:    elutionDropHeight,
		MixRounds:     e.cfg.Protocol.ElutionMixes,
		MixHeight:     deepwellMixHeight,
		MixDropHeight: elutionDropHeight,
		Recycle:       e.cfg.Protocol.TipRecyclingInElution,
	})
}

type bufferTransfer struct {
	DropHeight      float64
	MixRounds       int
	MixHeight       float64
	MixDropHeight   float64
	TwoThirdsBottom bool
	Recycle         bool
}

// transferBuffer fills every deepwell column from a reservoir reagent, mixes
// it into the beads, and parks the tip for the matching supernatant step when
// recycling.
func (e *extraction) transferBuffer(ctx context.Context, s *Session, key string, opts bufferTransfer) error {
	r, err := s.reagent(ctx, key)
	if err != nil || r == nil {
		return err
	}
	trips, aspirate, _ := r.TripVolume()
	required := aspirate * float64(r.ChannelWidth)
	liq := r.Settings

	for col := 0; col < e.cfg.Columns(); col++ {
		colCtx := services.WithColumn(ctx, col)
		if err := s.ensureTip(colCtx); err != nil {
			return err
		}
		offset := -side(col) * e.mixOffset
		dest := liquid.TopOf(ContainerDeepwell, columnWell(col), opts.DropHeight).Shift(offset)
		for trip := 0; trip < trips; trip++ {
			plan, err := s.plan(colCtx, r, col, trip, required)
			if err != nil {
				return err
			}
			if err := s.move(colCtx, liq, transfer{
				Source: liquid.BottomOf(ContainerReservoir, reservoirWell(plan.Well), plan.Height),
				Dest:   dest,
				Volume: aspirate,
			}); err != nil {
				return err
			}
		}
		if opts.MixRounds > 0 {
			if err := s.mix(colCtx, liq, mix{
				Container:       ContainerDeepwell,
				Well:            columnWell(col),
				Volume:          math.Min(liq.MaxVolumeAllowed, liq.VolumePerSample),
				Rounds:          opts.MixRounds,
				Height:          opts.MixHeight,
				Offset:          offset,
				DropHeight:      opts.MixDropHeight,
				TwoThirdsBottom: opts.TwoThirdsBottom,
			}); err != nil {
				return err
			}
		}
		if err := s.airGapAfter(colCtx, liq.AirGapBottom); err != nil {
			return err
		}
		if err := s.releaseTip(colCtx, opts.Recycle, tips.ParkKey{Phase: key, Column: col}); err != nil {
			return err
		}
	}
	return nil
}

// transferEluate moves the final eluate volume into the elution plate, reusing
// the tips parked by the elution transfer when recycling.
func (e *extraction) transferEluate(ctx context.Context, s *Session, _ int) error {
	elution, err := s.ledger.Reagent(config.ReagentElution)
	if err != nil {
		return err
	}
	final := e.cfg.Protocol.ElutionFinalVolume
	if final > 0 {
		trips := tripsFor(final, elution.Settings.MaxVolumeAllowed)
		volume := final/float64(trips) + elution.Settings.DisposalVolume
		recycle := e.cfg.Protocol.TipRecyclingInElution && elution.Provisioned()

		for col := 0; col < e.cfg.Columns(); col++ {
			colCtx := services.WithColumn(ctx, col)
			if !s.holding() {
				if recycle {
					err = s.pickUpParked(colCtx, tips.ParkKey{Phase: config.ReagentElution, Column: col})
				} else {
					err = s.pickUp(colCtx)
				}
				if err != nil {
					return err
				}
			}
			source := liquid.BottomOf(ContainerDeepwell, columnWell(col), eluatePickupHeight).Shift(side(col) * e.pelletOffset)
			dest := liquid.TopOf(ContainerElutionPlate, columnWell(col), finalPlateDropHeight)
			for trip := 0; trip < trips; trip++ {
				if err := s.move(colCtx, e.sample, transfer{
					Source:  source,
					Dest:    dest,
					Volume:  volume,
					BlowOut: true,
				}); err != nil {
					return err
				}
			}
			if err := s.airGapAfter(colCtx, e.sample.AirGapBottom); err != nil {
				return err
			}
			if err := s.dropTip(colCtx); err != nil {
				return err
			}
		}
	}
	if e.cfg.Protocol.TemperatureEnabled {
		return s.handler.SetTemperature(ctx, e.cfg.Protocol.Temperature)
	}
	return nil
}

func tripsFor(volume, maxPerTrip float64) int {
	if volume <= 0 || maxPerTrip <= 0 {
		return 0
	}
	return int(math.Ceil(volume / maxPerTrip))
}
