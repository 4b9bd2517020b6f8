package liquid

import "context"

// TouchTip holds touch-tip motion parameters.
type TouchTip struct {
	Speed   float64
	VOffset float64
	Radius  float64
}

// Handler is the liquid-handling collaborator for one pipette.
type Handler interface {
	Aspirate(ctx context.Context, volume float64, at Location, rate float64) error
	Dispense(ctx context.Context, volume float64, at Location, rate float64) error
	BlowOut(ctx context.Context, at Location) error
	TouchTip(ctx context.Context, opts TouchTip) error
	AirGap(ctx context.Context, volume, height float64) error

	PickUpTip(ctx context.Context, at Location) error
	DropTip(ctx context.Context) error
	ReturnTip(ctx context.Context) error

	EngageMagnet(ctx context.Context, height float64) error
	DisengageMagnet(ctx context.Context) error
	SetTemperature(ctx context.Context, celsius float64) error
}

// Waiter blocks the run. Neither call can be cancelled.
type Waiter interface {
	Delay(seconds int, message string)
	Pause(message string)
}
