package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// extractionSteps is the number of steps in the Station B workflow.
const extractionSteps = 16

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateProtocol(); err != nil {
		return err
	}
	if err := c.validateSteps(); err != nil {
		return err
	}
	if err := c.validatePipette(); err != nil {
		return err
	}
	if err := c.validateReservoir(); err != nil {
		return err
	}
	if err := c.validateReagents(); err != nil {
		return err
	}
	if err := c.validateTips(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateProtocol() error {
	p := c.Protocol
	switch p.Kind {
	case ProtocolExtraction, ProtocolDispense:
	default:
		return fmt.Errorf("protocol.kind must be %q or %q, got %q", ProtocolExtraction, ProtocolDispense, p.Kind)
	}
	if p.NumSamples < 1 || p.NumSamples > 96 {
		return fmt.Errorf("protocol.num_samples must be between 1 and 96, got %d", p.NumSamples)
	}
	mixes := map[string]int{
		"protocol.beads_well_first_mixes": p.BeadsWellFirstMixes,
		"protocol.beads_well_mixes":       p.BeadsWellMixes,
		"protocol.beads_mixes":            p.BeadsMixes,
		"protocol.wash1_mixes":            p.Wash1Mixes,
		"protocol.wash2_mixes":            p.Wash2Mixes,
		"protocol.elution_mixes":          p.ElutionMixes,
	}
	if err := ensureNonNegativeMap(mixes); err != nil {
		return err
	}
	if p.Kind == ProtocolExtraction {
		if p.SampleVolume <= 0 {
			return errors.New("protocol.sample_volume must be positive")
		}
		if p.ElutionFinalVolume <= 0 {
			return errors.New("protocol.elution_final_volume must be positive")
		}
		if p.MagnetHeight < 0 {
			return errors.New("protocol.magnet_height must be non-negative")
		}
	}
	if p.Kind == ProtocolDispense {
		if p.DispenseVolume <= 0 {
			return errors.New("protocol.dispense_volume must be positive")
		}
		if p.DispenseAirGap < 0 {
			return errors.New("protocol.dispense_air_gap must be non-negative")
		}
		if p.DispenseFlowRate <= 0 {
			return errors.New("protocol.dispense_flow_rate must be positive")
		}
		if p.DispenseVolume+p.DispenseAirGap > c.Pipette.TipCapacity {
			return fmt.Errorf("protocol.dispense_volume plus air gap exceeds pipette.tip_capacity (%.1f)", c.Pipette.TipCapacity)
		}
	}
	return nil
}

func (c *Config) validateSteps() error {
	maxStep := extractionSteps
	if c.Protocol.Kind == ProtocolDispense {
		maxStep = 1
	}
	seen := make(map[int]struct{}, len(c.Steps))
	for _, step := range c.Steps {
		if step.Number < 1 || step.Number > maxStep {
			return fmt.Errorf("steps.number must be between 1 and %d, got %d", maxStep, step.Number)
		}
		if _, dup := seen[step.Number]; dup {
			return fmt.Errorf("steps.number %d is listed more than once", step.Number)
		}
		seen[step.Number] = struct{}{}
		if step.WaitSeconds != nil && *step.WaitSeconds < 0 {
			return fmt.Errorf("steps.wait_seconds for step %d must be non-negative", step.Number)
		}
	}
	return nil
}

func (c *Config) validatePipette() error {
	if c.Pipette.Channels != 1 && c.Pipette.Channels != 8 {
		return fmt.Errorf("pipette.channels must be 1 or 8, got %d", c.Pipette.Channels)
	}
	if c.Pipette.TipRacks < 1 {
		return errors.New("pipette.tip_racks must be at least 1")
	}
	if c.Pipette.TipCapacity <= 0 {
		return errors.New("pipette.tip_capacity must be positive")
	}
	return nil
}

func (c *Config) validateReservoir() error {
	r := c.Reservoir
	if r.Wells < 1 {
		return errors.New("reservoir.wells must be at least 1")
	}
	if r.CrossSectionArea <= 0 {
		return errors.New("reservoir.cross_section_area must be positive")
	}
	if r.ChannelMaxVolume <= 0 {
		return errors.New("reservoir.channel_max_volume must be positive")
	}
	if r.MinHeight < 0 {
		return errors.New("reservoir.min_height must be non-negative")
	}
	return nil
}

func (c *Config) validateReagents() error {
	seen := make(map[string]struct{}, len(c.Reagents))
	for _, r := range c.Reagents {
		if r.Key == "" {
			return errors.New("reagents.key must be set")
		}
		if _, dup := seen[r.Key]; dup {
			return fmt.Errorf("reagents.key %q is listed more than once", r.Key)
		}
		seen[r.Key] = struct{}{}
		prefix := "reagents." + r.Key
		if r.VolumePerSample < 0 {
			return fmt.Errorf("%s.volume_per_sample must be non-negative", prefix)
		}
		if r.MaxVolumeAllowed <= 0 {
			return fmt.Errorf("%s.max_volume_allowed must be positive", prefix)
		}
		if r.MaxVolumeAllowed > c.Pipette.TipCapacity {
			return fmt.Errorf("%s.max_volume_allowed exceeds pipette.tip_capacity (%.1f)", prefix, c.Pipette.TipCapacity)
		}
		if r.DeadVolume < 0 || r.DeadVolume >= c.Reservoir.ChannelMaxVolume {
			return fmt.Errorf("%s.dead_volume must be between 0 and reservoir.channel_max_volume", prefix)
		}
		if r.ConeVolume < 0 || r.DisposalVolume < 0 || r.AirGapBottom < 0 || r.AirGapTop < 0 {
			return fmt.Errorf("%s volumes must be non-negative", prefix)
		}
		if r.FirstWell < 0 || r.FirstWell > c.Reservoir.Wells {
			return fmt.Errorf("%s.first_well must be between 1 and %d", prefix, c.Reservoir.Wells)
		}
		if r.Channels < 0 || r.Channels > c.Reservoir.Wells {
			return fmt.Errorf("%s.channels must be between 0 and %d", prefix, c.Reservoir.Wells)
		}
		if r.ChannelVolume < 0 || r.ChannelVolume > c.Reservoir.ChannelMaxVolume {
			return fmt.Errorf("%s.channel_volume must be between 0 and reservoir.channel_max_volume", prefix)
		}
		if r.ChannelVolume > 0 && r.ChannelVolume <= r.DeadVolume {
			return fmt.Errorf("%s.channel_volume must exceed dead_volume", prefix)
		}
	}
	if c.Protocol.Kind == ProtocolExtraction {
		for _, key := range []string{ReagentBeads, ReagentWash1, ReagentWash2, ReagentElution} {
			if _, ok := seen[key]; !ok {
				return fmt.Errorf("reagents must include %q for the extraction protocol", key)
			}
		}
	}
	return nil
}

func (c *Config) validateTips() error {
	if c.Tips.WasteCapacity < 1 {
		return errors.New("tips.waste_capacity must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be non-negative")
	}
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL, got %q", topic)
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", key)
		}
	}
	return nil
}
