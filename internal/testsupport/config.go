package testsupport

import (
	"path/filepath"
	"testing"

	"liquidplan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces an extraction config seeded with unique temp directories
// per test and the default reagent catalogue. Options run after the defaults.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "runs")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Protocol.Name = "test-extraction"
	cfgVal.Reagents = config.DefaultExtractionReagents()
	for i := range cfgVal.Reagents {
		cfgVal.Reagents[i].MaxVolumeAllowed = cfgVal.Pipette.TipCapacity
		cfgVal.Reagents[i].FlowRateAspirateMix = cfgVal.Reagents[i].FlowRateAspirate
		cfgVal.Reagents[i].FlowRateDispenseMix = cfgVal.Reagents[i].FlowRateDispense
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithSamples sets the number of samples on the plate.
func WithSamples(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Protocol.NumSamples = n
	}
}

// WithDispenseProtocol switches to the Station A/C dispensing workflow with a
// single rack of 20 uL tips.
func WithDispenseProtocol() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Protocol.Kind = config.ProtocolDispense
		b.cfg.Protocol.Name = "test-dispense"
		b.cfg.Pipette.Name = "p20_multi_gen2"
		b.cfg.Pipette.TipRacks = 1
		b.cfg.Pipette.TipCapacity = 20
		b.cfg.Reagents = nil
	}
}

// WithTipRecycling parks wash and elution tips for reuse.
func WithTipRecycling(wash, elution bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Protocol.TipRecyclingInWash = wash
		b.cfg.Protocol.TipRecyclingInElution = elution
	}
}

// WithTipRacks overrides the number of tip racks on the deck.
func WithTipRacks(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipette.TipRacks = n
	}
}

// WithReagent edits the reagent stored under key.
func WithReagent(key string, edit func(*config.Reagent)) ConfigOption {
	return func(b *configBuilder) {
		for i := range b.cfg.Reagents {
			if b.cfg.Reagents[i].Key == key {
				edit(&b.cfg.Reagents[i])
				return
			}
		}
		b.t.Fatalf("no reagent %q in test config", key)
	}
}

// WithStep overrides a step's execution flag and wait time. A negative wait
// keeps the default.
func WithStep(number int, execute bool, waitSeconds int) ConfigOption {
	return func(b *configBuilder) {
		override := config.StepOverride{Number: number, Execute: &execute}
		if waitSeconds >= 0 {
			override.WaitSeconds = &waitSeconds
		}
		b.cfg.Steps = append(b.cfg.Steps, override)
	}
}

// WithNtfyTopic points notifications at a test server.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
		b.cfg.Notifications.RequestTimeout = 5
	}
}

// WithMetricsTextfile enables the Prometheus textfile export under the test directory.
func WithMetricsTextfile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.TextfilePath = filepath.Join(b.baseDir, "metrics", "liquidplan.prom")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
