package reagent

import (
	"errors"
	"fmt"

	"liquidplan/internal/services"
)

// ErrNotProvisioned is returned when a reagent with no provisioned channels is
// asked to plan an aspiration.
var ErrNotProvisioned = errors.New("reagent not provisioned")

// ChannelExhaustionError reports that a reagent ran past its last provisioned
// channel. The run configuration under-provisioned the reagent.
type ChannelExhaustionError struct {
	Reagent   string
	Channels  int
	Required  float64
	Available float64
}

func (e *ChannelExhaustionError) Error() string {
	return fmt.Sprintf("reagent %s exhausted all %d channel(s): trip needs %.1f uL, %.1f uL usable left",
		e.Reagent, e.Channels, e.Required, e.Available)
}

func (e *ChannelExhaustionError) Unwrap() error { return services.ErrConfiguration }

// TripTooLargeError reports a single trip whose net volume can never fit in one
// channel, even a freshly filled one.
type TripTooLargeError struct {
	Reagent string
	Net     float64
	Usable  float64
}

func (e *TripTooLargeError) Error() string {
	return fmt.Sprintf("reagent %s trip of %.1f uL exceeds the %.1f uL usable per channel",
		e.Reagent, e.Net, e.Usable)
}

func (e *TripTooLargeError) Unwrap() error { return services.ErrConfiguration }

// ReservoirFullError reports that provisioning needs more wells than the
// reservoir has.
type ReservoirFullError struct {
	Reagent   string
	FirstWell int
	Channels  int
	Wells     int
}

func (e *ReservoirFullError) Error() string {
	return fmt.Sprintf("reagent %s needs wells %d-%d but the reservoir has %d",
		e.Reagent, e.FirstWell, e.FirstWell+e.Channels-1, e.Wells)
}

func (e *ReservoirFullError) Unwrap() error { return services.ErrConfiguration }
