package protocol

import (
	"context"
	"fmt"

	"liquidplan/internal/config"
	"liquidplan/internal/liquid"
	"liquidplan/internal/services"
)

// dispense copies a fixed sample volume column by column from the source
// plate to the destination plate (Stations A and C).
type dispense struct {
	cfg *config.Config
}

func newDispense(cfg *config.Config) *dispense {
	return &dispense{cfg: cfg}
}

func (d *dispense) Name() string { return d.cfg.Protocol.Name }

func (d *dispense) Kind() string { return config.ProtocolDispense }

func (d *dispense) Steps() []Definition {
	return []Definition{
		{Number: 1, Description: "Transfer samples", Run: d.transferSamples},
	}
}

func (d *dispense) Begin(context.Context, *Session) error { return nil }

func (d *dispense) Finish(context.Context, *Session) error { return nil }

func (d *dispense) transferSamples(ctx context.Context, s *Session, wait int) error {
	p := d.cfg.Protocol
	for col := 0; col < d.cfg.Columns(); col++ {
		colCtx := services.WithColumn(ctx, col)
		well := columnWell(col)
		if err := s.pickUp(colCtx); err != nil {
			return err
		}
		source := liquid.BottomOf(ContainerSourcePlate, well, p.DispensePickupHeight)
		if err := s.handler.Aspirate(colCtx, p.DispenseVolume, source, p.DispenseFlowRate); err != nil {
			return err
		}
		if p.DispenseAirGap > 0 {
			above := liquid.TopOf(ContainerSourcePlate, well, -2)
			if err := s.handler.Aspirate(colCtx, p.DispenseAirGap, above, p.DispenseFlowRate); err != nil {
				return err
			}
		}
		dest := liquid.TopOf(ContainerDestPlate, well, p.DispenseDropHeight)
		if err := s.handler.Dispense(colCtx, p.DispenseVolume+p.DispenseAirGap, dest, p.DispenseFlowRate); err != nil {
			return err
		}
		s.delay(wait, fmt.Sprintf("Waiting for %d seconds.", wait))
		if err := s.handler.TouchTip(colCtx, liquid.TouchTip{Speed: 100, Radius: 0.1, VOffset: p.DispenseDropHeight}); err != nil {
			return err
		}
		if err := s.dropTip(colCtx); err != nil {
			return err
		}
	}
	return nil
}
