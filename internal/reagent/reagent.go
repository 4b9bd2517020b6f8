package reagent

import (
	"fmt"
	"log/slog"
	"sync"

	"liquidplan/internal/config"
	"liquidplan/internal/logging"
	"liquidplan/internal/services"
)

// Geometry holds the reservoir constants used for height calculation.
type Geometry struct {
	CrossSectionArea float64
	MinHeight        float64
}

// Recorder receives ledger events. The metrics package implements it.
type Recorder interface {
	ObserveAspiration(reagent string, net, height float64)
	ObserveRollover(reagent string, channel int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAspiration(string, float64, float64) {}
func (nopRecorder) ObserveRollover(string, int)                {}

// Aspiration is the plan for one trip out of a reagent channel.
type Aspiration struct {
	Height float64
	// ChannelChanged is true when the trip moved to a new channel.
	ChannelChanged bool
	// FirstAccess is true for the first trip of the run.
	FirstAccess bool
	Channel     int
	Well        int
	Required    float64
	Net         float64
	Remaining   float64
}

// Reagent is one liquid stored across one or more reservoir channels.
type Reagent struct {
	Settings     config.Reagent
	Provisioning Provisioning
	ChannelWidth int
	Columns      int
	// Wells lists the 1-based reservoir wells assigned to the reagent.
	Wells []int

	geometry Geometry
	logger   *slog.Logger
	recorder Recorder

	mu        sync.Mutex
	index     int
	remaining float64
	accessed  bool
	trips     int
	delivered float64
}

// New provisions a standalone reagent. Wells are numbered from the reagent's
// first well; use Ledger.Provision to share a reservoir.
func New(settings config.Reagent, sizing Sizing, geometry Geometry, logger *slog.Logger) (*Reagent, error) {
	p, err := Size(settings, sizing)
	if err != nil {
		return nil, err
	}
	first := max(settings.FirstWell, 1)
	wells := make([]int, p.Channels)
	for i := range wells {
		wells[i] = first + i
	}
	return newReagent(settings, p, sizing, geometry, wells, logger, nil), nil
}

func newReagent(settings config.Reagent, p Provisioning, sizing Sizing, geometry Geometry, wells []int, logger *slog.Logger, recorder Recorder) *Reagent {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Reagent{
		Settings:     settings,
		Provisioning: p,
		ChannelWidth: max(sizing.ChannelWidth, 1),
		Columns:      sizing.Columns,
		Wells:        wells,
		geometry:     geometry,
		logger:       logging.NewComponentLogger(logger, "reagent").With(logging.String(logging.FieldReagent, settings.Key)),
		recorder:     recorder,
		remaining:    p.NominalVolume,
	}
}

// Key returns the reagent identifier.
func (r *Reagent) Key() string { return r.Settings.Key }

// Provisioned reports whether the reagent has at least one channel.
func (r *Reagent) Provisioned() bool { return r.Provisioning.Channels > 0 }

// RequiredTotalVolume is the volume the run delivers from this reagent.
func (r *Reagent) RequiredTotalVolume() float64 {
	return r.Settings.VolumePerSample * float64(r.Columns*r.ChannelWidth)
}

// Allowance is the disposal volume aspirated on every trip but never delivered.
func (r *Reagent) Allowance() float64 {
	return r.Settings.DisposalVolume * float64(r.ChannelWidth)
}

// TripVolume returns the per-tip volumes for one column: the trip count, the
// volume each tip aspirates on a trip (delivered plus disposal), and the
// volume it delivers.
func (r *Reagent) TripVolume() (trips int, aspirate, deliver float64) {
	p := r.Provisioning
	return p.TripsPerColumn, p.VolumePerTip + r.Settings.DisposalVolume, p.VolumePerTip
}

// PlanAspiration plans one trip of required microlitres across the whole
// pipette width and deducts the net volume from the current channel. The
// rollover decision and the deduction happen under one lock.
func (r *Reagent) PlanAspiration(required float64) (Aspiration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.Settings.Key
	if !r.Provisioned() {
		return Aspiration{}, fmt.Errorf("%w: %w: %s", services.ErrLogic, ErrNotProvisioned, key)
	}

	allowance := r.Allowance()
	net := required - allowance
	dead := r.Settings.DeadVolume
	if usable := r.Provisioning.NominalVolume - dead; net > usable+volumeTolerance {
		return Aspiration{}, &TripTooLargeError{Reagent: key, Net: net, Usable: usable}
	}

	plan := Aspiration{Required: required, Net: net, FirstAccess: !r.accessed}
	available := r.remaining - dead
	if available < net-volumeTolerance {
		if r.index+1 > r.Provisioning.Channels-1 {
			return Aspiration{}, &ChannelExhaustionError{
				Reagent:   key,
				Channels:  r.Provisioning.Channels,
				Required:  net,
				Available: available,
			}
		}
		previous := r.index
		r.index++
		r.remaining = r.Provisioning.NominalVolume
		plan.ChannelChanged = true
		r.logger.Info("reagent channel rollover",
			logging.Args(append(logging.DecisionAttrs("channel_rollover", "next_channel", "usable volume below trip"),
				logging.Int("previous_well", r.Wells[previous]),
				logging.Int("well", r.Wells[r.index]),
				logging.Float64("available_ul", available),
				logging.Float64("net_ul", net),
			)...)...)
		r.recorder.ObserveRollover(key, r.index)
	}

	height := (r.remaining - required - r.Settings.ConeVolume) / r.geometry.CrossSectionArea
	if height < r.geometry.MinHeight {
		height = r.geometry.MinHeight
	}
	r.remaining -= net
	r.accessed = true
	r.trips++
	r.delivered += net

	plan.Height = height
	plan.Channel = r.index
	plan.Well = r.Wells[r.index]
	plan.Remaining = r.remaining

	r.logger.Debug("aspiration planned",
		logging.Int("well", plan.Well),
		logging.Float64("pickup_height_mm", height),
		logging.Float64("net_ul", net),
		logging.Float64("remaining_ul", r.remaining),
		logging.Bool("channel_changed", plan.ChannelChanged),
	)
	r.recorder.ObserveAspiration(key, net, height)
	return plan, nil
}

// Status is a point-in-time view of a reagent for reports.
type Status struct {
	Key           string  `json:"key" yaml:"key"`
	Name          string  `json:"name" yaml:"name"`
	FirstWell     int     `json:"first_well" yaml:"first_well"`
	Channels      int     `json:"channels" yaml:"channels"`
	NominalVolume float64 `json:"nominal_volume_ul" yaml:"nominal_volume_ul"`
	RequiredTotal float64 `json:"required_total_ul" yaml:"required_total_ul"`
	ChannelsUsed  int     `json:"channels_used" yaml:"channels_used"`
	CurrentWell   int     `json:"current_well" yaml:"current_well"`
	Remaining     float64 `json:"remaining_ul" yaml:"remaining_ul"`
	Trips         int     `json:"trips" yaml:"trips"`
	Delivered     float64 `json:"delivered_ul" yaml:"delivered_ul"`
}

// Status reports the reagent's provisioning and cursor.
func (r *Reagent) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{
		Key:           r.Settings.Key,
		Name:          r.Settings.Name,
		Channels:      r.Provisioning.Channels,
		NominalVolume: r.Provisioning.NominalVolume,
		RequiredTotal: r.RequiredTotalVolume(),
		Remaining:     r.remaining,
		Trips:         r.trips,
		Delivered:     r.delivered,
	}
	if len(r.Wells) > 0 {
		s.FirstWell = r.Wells[0]
		s.CurrentWell = r.Wells[r.index]
	}
	if r.accessed {
		s.ChannelsUsed = r.index + 1
	}
	return s
}
