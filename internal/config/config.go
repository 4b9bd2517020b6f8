package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Protocol selects the workflow and its per-run parameters.
type Protocol struct {
	Kind       string `toml:"kind"`
	Name       string `toml:"name"`
	NumSamples int    `toml:"num_samples"`

	// Extraction (Station B).
	SampleVolume          float64 `toml:"sample_volume"`
	ElutionFinalVolume    float64 `toml:"elution_final_volume"`
	MagnetHeight          float64 `toml:"magnet_height"`
	TipRecyclingInWash    bool    `toml:"tip_recycling_in_wash"`
	TipRecyclingInElution bool    `toml:"tip_recycling_in_elution"`
	BeadsWellFirstMixes   int     `toml:"beads_well_first_mixes"`
	BeadsWellMixes        int     `toml:"beads_well_mixes"`
	BeadsMixes            int     `toml:"beads_mixes"`
	Wash1Mixes            int     `toml:"wash1_mixes"`
	Wash2Mixes            int     `toml:"wash2_mixes"`
	ElutionMixes          int     `toml:"elution_mixes"`
	TemperatureEnabled    bool    `toml:"temperature_enabled"`
	Temperature           float64 `toml:"temperature"`

	// Dispensing (Stations A and C).
	DispenseVolume       float64 `toml:"dispense_volume"`
	DispenseAirGap       float64 `toml:"dispense_air_gap"`
	DispensePickupHeight float64 `toml:"dispense_pickup_height"`
	DispenseDropHeight   float64 `toml:"dispense_drop_height"`
	DispenseFlowRate     float64 `toml:"dispense_flow_rate"`
}

// StepOverride enables/disables a protocol step or replaces its wait time.
type StepOverride struct {
	Number      int   `toml:"number"`
	Execute     *bool `toml:"execute"`
	WaitSeconds *int  `toml:"wait_seconds"`
}

// Pipette describes the single pipette instrument mounted for the run.
type Pipette struct {
	Name        string  `toml:"name"`
	Channels    int     `toml:"channels"`
	TipRacks    int     `toml:"tip_racks"`
	TipCapacity float64 `toml:"tip_capacity"`
}

// Reservoir describes the multi-channel reagent reservoir geometry.
type Reservoir struct {
	Wells            int     `toml:"wells"`
	CrossSectionArea float64 `toml:"cross_section_area"`
	ChannelMaxVolume float64 `toml:"channel_max_volume"`
	MinHeight        float64 `toml:"min_height"`
}

// Reagent describes one liquid stored in the reservoir.
type Reagent struct {
	Key              string  `toml:"key"`
	Name             string  `toml:"name"`
	VolumePerSample  float64 `toml:"volume_per_sample"`
	MaxVolumeAllowed float64 `toml:"max_volume_allowed"`
	DeadVolume       float64 `toml:"dead_volume"`
	ConeVolume       float64 `toml:"cone_volume"`
	DisposalVolume   float64 `toml:"disposal_volume"`
	FirstWell        int     `toml:"first_well"`
	// Channels and ChannelVolume pin provisioning instead of deriving it.
	Channels            int     `toml:"channels"`
	ChannelVolume       float64 `toml:"channel_volume"`
	FlowRateAspirate    float64 `toml:"flow_rate_aspirate"`
	FlowRateDispense    float64 `toml:"flow_rate_dispense"`
	FlowRateAspirateMix float64 `toml:"flow_rate_aspirate_mix"`
	FlowRateDispenseMix float64 `toml:"flow_rate_dispense_mix"`
	AirGapBottom        float64 `toml:"air_gap_bottom"`
	AirGapTop           float64 `toml:"air_gap_top"`
}

// Tips contains tip supply and waste settings.
type Tips struct {
	WasteCapacity int  `toml:"waste_capacity"`
	DryRunReturn  bool `toml:"dry_run_return"`
}

// Notifications contains configuration for ntfy operator signals.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	TipReplacement bool   `toml:"tip_replacement"`
	WasteBin       bool   `toml:"waste_bin"`
	RunCompleted   bool   `toml:"run_completed"`
	Errors         bool   `toml:"errors"`
}

// Metrics contains Prometheus export settings.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for liquidplan.
//
// Configuration sections by subsystem:
//   - Paths: execution log, history database, and log file locations
//   - Logging: log format and level
//   - Protocol: workflow kind, sample count, and workflow parameters
//   - Steps: per-step enable flags and wait overrides
//   - Pipette: instrument width, tip racks, and tip capacity
//   - Reservoir: reservoir geometry used for height calculation
//   - Reagents: reservoir reagent catalogue
//   - Tips: waste bin capacity and dry-run tip return
//   - Notifications: ntfy operator signals
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths         Paths          `toml:"paths"`
	Logging       Logging        `toml:"logging"`
	Protocol      Protocol       `toml:"protocol"`
	Steps         []StepOverride `toml:"steps"`
	Pipette       Pipette        `toml:"pipette"`
	Reservoir     Reservoir      `toml:"reservoir"`
	Reagents      []Reagent      `toml:"reagents"`
	Tips          Tips           `toml:"tips"`
	Notifications Notifications  `toml:"notifications"`
	Metrics       Metrics        `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/liquidplan/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and reagent defaults filled in.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("liquidplan.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.OutputDir, defaultHistoryDatabaseName)
}

// LockPath returns the location of the single-run lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputDir, defaultLockFileName)
}

// Columns returns the number of plate columns the configured samples occupy.
func (c *Config) Columns() int {
	if c.Protocol.NumSamples <= 0 {
		return 0
	}
	return (c.Protocol.NumSamples + 7) / 8
}

// Reagent returns the reagent with the given key.
func (c *Config) Reagent(key string) (Reagent, bool) {
	for _, r := range c.Reagents {
		if r.Key == key {
			return r, true
		}
	}
	return Reagent{}, false
}

// Step returns the override for a step number, if any.
func (c *Config) Step(number int) (StepOverride, bool) {
	for _, s := range c.Steps {
		if s.Number == number {
			return s, true
		}
	}
	return StepOverride{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
