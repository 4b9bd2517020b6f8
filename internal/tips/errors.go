package tips

import (
	"errors"
	"fmt"

	"liquidplan/internal/services"
)

// ErrTipSupplyExhausted is the reason the tracker pauses for a rack refill. It
// is returned only when a refill cannot produce a fresh tip.
var ErrTipSupplyExhausted = errors.New("tip supply exhausted")

// ParkedTipNotFoundError reports a retrieval for a phase and column that never
// parked a tip.
type ParkedTipNotFoundError struct {
	Pipette string
	Key     ParkKey
}

func (e *ParkedTipNotFoundError) Error() string {
	return fmt.Sprintf("no tip parked for %s on pipette %s", e.Key, e.Pipette)
}

func (e *ParkedTipNotFoundError) Unwrap() error { return services.ErrLogic }

func logicError(pipette, format string, args ...any) error {
	return fmt.Errorf("%w: pipette %s: %s", services.ErrLogic, pipette, fmt.Sprintf(format, args...))
}
