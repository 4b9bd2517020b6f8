package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeProtocol()
	c.normalizeReagents()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Metrics.TextfilePath) != "" {
		if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
			return fmt.Errorf("metrics.textfile_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeProtocol() {
	c.Protocol.Kind = strings.ToLower(strings.TrimSpace(c.Protocol.Kind))
	if c.Protocol.Kind == "" {
		c.Protocol.Kind = defaultProtocolKind
	}
	c.Protocol.Name = strings.TrimSpace(c.Protocol.Name)
	if c.Protocol.Name == "" {
		c.Protocol.Name = c.Protocol.Kind
	}
	c.Pipette.Name = strings.TrimSpace(c.Pipette.Name)
	if c.Pipette.Name == "" {
		c.Pipette.Name = defaultPipetteName
	}
}

func (c *Config) normalizeReagents() {
	if len(c.Reagents) == 0 && c.Protocol.Kind == ProtocolExtraction {
		c.Reagents = DefaultExtractionReagents()
	}
	for i := range c.Reagents {
		r := &c.Reagents[i]
		r.Key = strings.ToLower(strings.TrimSpace(r.Key))
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			r.Name = r.Key
		}
		if r.MaxVolumeAllowed == 0 {
			r.MaxVolumeAllowed = c.Pipette.TipCapacity
		}
		if r.ConeVolume == 0 {
			r.ConeVolume = defaultConeVolume
		}
		if r.FlowRateAspirate == 0 {
			r.FlowRateAspirate = defaultFlowRateAspirate
		}
		if r.FlowRateDispense == 0 {
			r.FlowRateDispense = defaultFlowRateDispense
		}
		if r.FlowRateAspirateMix == 0 {
			r.FlowRateAspirateMix = r.FlowRateAspirate
		}
		if r.FlowRateDispenseMix == 0 {
			r.FlowRateDispenseMix = r.FlowRateDispense
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv(defaultNtfyTopicEnvVar); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
