// Package metrics exposes run statistics as Prometheus collectors and writes
// them to a node_exporter textfile when a run ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "liquidplan"

// Collector owns a private registry with every liquidplan metric.
type Collector struct {
	registry *prometheus.Registry

	aspirations  *prometheus.CounterVec
	volume       *prometheus.CounterVec
	rollovers    *prometheus.CounterVec
	pickupHeight *prometheus.GaugeVec
	tipsUsed     *prometheus.GaugeVec
	tipRefills   *prometheus.CounterVec
	wasteFull    *prometheus.CounterVec
	stepSeconds  *prometheus.GaugeVec
	runs         *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		aspirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aspirations_total",
			Help:      "Planned reservoir aspirations.",
		}, []string{"reagent"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reagent_volume_microlitres_total",
			Help:      "Net reagent volume drawn from the reservoir.",
		}, []string{"reagent"}),
		rollovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_rollovers_total",
			Help:      "Moves to the next reservoir channel.",
		}, []string{"reagent"}),
		pickupHeight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pickup_height_millimetres",
			Help:      "Most recent aspiration height above the well bottom.",
		}, []string{"reagent"}),
		tipsUsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tips_used",
			Help:      "Tips consumed in the run.",
		}, []string{"pipette"}),
		tipRefills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tip_refills_total",
			Help:      "Operator tip rack replacements.",
		}, []string{"pipette"}),
		wasteFull: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waste_bin_full_total",
			Help:      "Waste bin full warnings.",
		}, []string{"pipette"}),
		stepSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall-clock duration of each executed protocol step.",
		}, []string{"step"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by protocol and outcome.",
		}, []string{"protocol", "status"}),
	}
	c.registry.MustRegister(
		c.aspirations, c.volume, c.rollovers, c.pickupHeight,
		c.tipsUsed, c.tipRefills, c.wasteFull, c.stepSeconds, c.runs,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ObserveAspiration records one planned trip.
func (c *Collector) ObserveAspiration(reagent string, net, height float64) {
	c.aspirations.WithLabelValues(reagent).Inc()
	c.volume.WithLabelValues(reagent).Add(net)
	c.pickupHeight.WithLabelValues(reagent).Set(height)
}

// ObserveRollover records a channel change.
func (c *Collector) ObserveRollover(reagent string, _ int) {
	c.rollovers.WithLabelValues(reagent).Inc()
}

// TipRefill records an operator rack replacement.
func (c *Collector) TipRefill(pipette string) {
	c.tipRefills.WithLabelValues(pipette).Inc()
}

// WasteBinFull records a waste bin warning.
func (c *Collector) WasteBinFull(pipette string) {
	c.wasteFull.WithLabelValues(pipette).Inc()
}

// SetTipsUsed records the final tip consumption for a pipette.
func (c *Collector) SetTipsUsed(pipette string, used int) {
	c.tipsUsed.WithLabelValues(pipette).Set(float64(used))
}

// ObserveStep records how long a step took.
func (c *Collector) ObserveStep(step int, elapsed time.Duration) {
	c.stepSeconds.WithLabelValues(strconv.Itoa(step)).Set(elapsed.Seconds())
}

// RunFinished counts a completed or failed run.
func (c *Collector) RunFinished(protocol, status string) {
	c.runs.WithLabelValues(protocol, status).Inc()
}

// WriteTextfile writes the registry in the Prometheus text format. An empty
// path disables the export.
func (c *Collector) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
