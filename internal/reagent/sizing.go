package reagent

import (
	"math"

	"liquidplan/internal/config"
)

// volumeTolerance absorbs float drift when volumes are compared or divided.
// Derived per-trip volumes are often fractional (200 uL in 90 uL trips).
const volumeTolerance = 1e-6

// tripsWithin is the number of whole trips of size per that fit in volume.
func tripsWithin(volume, per float64) int {
	return int(math.Floor((volume + volumeTolerance) / per))
}

// tripsFor is the number of trips of at most per needed to move volume.
func tripsFor(volume, per float64) int {
	return int(math.Ceil((volume - volumeTolerance) / per))
}

// Sizing carries the run-wide values provisioning depends on.
type Sizing struct {
	Columns          int
	ChannelWidth     int
	ChannelMaxVolume float64
}

// Provisioning is the outcome of sizing one reagent for a run.
type Provisioning struct {
	TripsPerColumn     int
	VolumePerTip       float64
	VolumePerTrip      float64
	MaxTripsPerChannel int
	TotalTrips         int
	Channels           int
	NominalVolume      float64
}

// Size computes how many channels a reagent needs and how much to fill each
// one with. Explicit channel count and channel volume in the reagent settings
// take precedence over the derived values. A reagent with nothing to deliver
// gets zero channels.
func Size(settings config.Reagent, sizing Sizing) (Provisioning, error) {
	if settings.VolumePerSample <= 0 || sizing.Columns <= 0 || settings.MaxVolumeAllowed <= 0 {
		return Provisioning{}, nil
	}
	width := float64(max(sizing.ChannelWidth, 1))

	p := Provisioning{}
	p.TripsPerColumn = max(tripsFor(settings.VolumePerSample, settings.MaxVolumeAllowed), 1)
	p.VolumePerTip = settings.VolumePerSample / float64(p.TripsPerColumn)
	p.VolumePerTrip = p.VolumePerTip * width
	p.TotalTrips = sizing.Columns * p.TripsPerColumn

	usable := sizing.ChannelMaxVolume - settings.DeadVolume
	if settings.ChannelVolume > 0 {
		usable = settings.ChannelVolume - settings.DeadVolume
	}
	p.MaxTripsPerChannel = tripsWithin(usable, p.VolumePerTrip)
	if p.MaxTripsPerChannel < 1 {
		return Provisioning{}, &TripTooLargeError{Reagent: settings.Key, Net: p.VolumePerTrip, Usable: usable}
	}

	if settings.Channels > 0 {
		p.Channels = settings.Channels
	} else {
		p.Channels = int(math.Ceil(float64(p.TotalTrips) / float64(p.MaxTripsPerChannel)))
	}

	if settings.ChannelVolume > 0 {
		p.NominalVolume = settings.ChannelVolume
	} else {
		tripsPerChannel := math.Ceil(float64(p.TotalTrips) / float64(p.Channels))
		p.NominalVolume = min(tripsPerChannel*p.VolumePerTrip+settings.DeadVolume, sizing.ChannelMaxVolume)
	}
	return p, nil
}
