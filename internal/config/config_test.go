package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidplan/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndFillsReagents(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LIQUIDPLAN_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "liquidplan", "runs")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.HistoryPath() != filepath.Join(wantOutput, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if cfg.Protocol.Kind != config.ProtocolExtraction {
		t.Fatalf("expected extraction protocol by default, got %q", cfg.Protocol.Kind)
	}
	if cfg.Protocol.Name != config.ProtocolExtraction {
		t.Fatalf("expected protocol name to default to kind, got %q", cfg.Protocol.Name)
	}
	if len(cfg.Reagents) != 4 {
		t.Fatalf("expected 4 default reagents, got %d", len(cfg.Reagents))
	}
	beads, ok := cfg.Reagent(config.ReagentBeads)
	if !ok {
		t.Fatal("expected beads reagent")
	}
	if beads.DeadVolume != 2000 {
		t.Fatalf("expected beads dead volume 2000, got %v", beads.DeadVolume)
	}
	if beads.MaxVolumeAllowed != 180 {
		t.Fatalf("expected max volume to follow tip capacity, got %v", beads.MaxVolumeAllowed)
	}
	elution, _ := cfg.Reagent(config.ReagentElution)
	if elution.FirstWell != 12 || elution.DeadVolume != 1400 {
		t.Fatalf("unexpected elution defaults: %+v", elution)
	}
	if cfg.Columns() != 12 {
		t.Fatalf("expected 12 columns, got %d", cfg.Columns())
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected empty ntfy topic, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadCustomPathOverridesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LIQUIDPLAN_NTFY_TOPIC", "https://ntfy.example/from-env")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
output_dir = "~/runs"

[logging]
format = "JSON"
level = "Debug"

[protocol]
num_samples = 40
tip_recycling_in_wash = true

[[steps]]
number = 12
wait_seconds = 30

[[steps]]
number = 16
execute = false

[[reagents]]
key = "beads"
volume_per_sample = 100
dead_volume = 2000
first_well = 1

[[reagents]]
key = "wash1"
volume_per_sample = 200

[[reagents]]
key = "wash2"
volume_per_sample = 200

[[reagents]]
key = "elution"
volume_per_sample = 50
channels = 1
channel_volume = 3000
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "runs") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %+v", cfg.Logging)
	}
	if cfg.Columns() != 5 {
		t.Fatalf("expected 5 columns for 40 samples, got %d", cfg.Columns())
	}
	if !cfg.Protocol.TipRecyclingInWash {
		t.Fatal("expected wash tip recycling enabled")
	}
	drying, ok := cfg.Step(12)
	if !ok || drying.WaitSeconds == nil || *drying.WaitSeconds != 30 {
		t.Fatalf("expected step 12 wait override, got %+v", drying)
	}
	final, ok := cfg.Step(16)
	if !ok || final.Execute == nil || *final.Execute {
		t.Fatalf("expected step 16 disabled, got %+v", final)
	}
	wash, _ := cfg.Reagent(config.ReagentWash1)
	if wash.Name != "wash1" {
		t.Fatalf("expected name to default to key, got %q", wash.Name)
	}
	if wash.FlowRateAspirate != 25 || wash.FlowRateDispenseMix != 100 {
		t.Fatalf("expected flow rate defaults, got %+v", wash)
	}
	elution, _ := cfg.Reagent(config.ReagentElution)
	if elution.Channels != 1 || elution.ChannelVolume != 3000 {
		t.Fatalf("expected fixed provisioning, got %+v", elution)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/from-env" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[protocol]\nsamples = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "too many samples",
			mutate: func(c *config.Config) { c.Protocol.NumSamples = 97 },
			want:   "protocol.num_samples",
		},
		{
			name:   "unknown protocol",
			mutate: func(c *config.Config) { c.Protocol.Kind = "pcr" },
			want:   "protocol.kind",
		},
		{
			name:   "four channel pipette",
			mutate: func(c *config.Config) { c.Pipette.Channels = 4 },
			want:   "pipette.channels",
		},
		{
			name:   "max volume above tip",
			mutate: func(c *config.Config) { c.Reagents[0].MaxVolumeAllowed = 250 },
			want:   "reagents.beads.max_volume_allowed",
		},
		{
			name:   "missing extraction reagent",
			mutate: func(c *config.Config) { c.Reagents = c.Reagents[:3] },
			want:   "\"elution\"",
		},
		{
			name:   "duplicate reagent",
			mutate: func(c *config.Config) { c.Reagents[1].Key = config.ReagentBeads },
			want:   "listed more than once",
		},
		{
			name:   "first well outside reservoir",
			mutate: func(c *config.Config) { c.Reagents[0].FirstWell = 13 },
			want:   "first_well",
		},
		{
			name: "step out of range",
			mutate: func(c *config.Config) {
				c.Steps = []config.StepOverride{{Number: 17}}
			},
			want: "steps.number",
		},
		{
			name: "negative wait",
			mutate: func(c *config.Config) {
				wait := -1
				c.Steps = []config.StepOverride{{Number: 2, WaitSeconds: &wait}}
			},
			want: "wait_seconds",
		},
		{
			name:   "negative mixes",
			mutate: func(c *config.Config) { c.Protocol.BeadsMixes = -1 },
			want:   "protocol.beads_mixes",
		},
		{
			name:   "relative ntfy topic",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "liquidplan" },
			want:   "notifications.ntfy_topic",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Reagents = config.DefaultExtractionReagents()
			for i := range cfg.Reagents {
				cfg.Reagents[i].MaxVolumeAllowed = cfg.Pipette.TipCapacity
			}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDispenseProtocolNeedsNoReagents(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[protocol]\nkind = \"dispense\"\n\n[pipette]\nname = \"p20_multi_gen2\"\ntip_racks = 1\ntip_capacity = 20\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Reagents) != 0 {
		t.Fatalf("expected no reagents for dispense protocol, got %d", len(cfg.Reagents))
	}
	if cfg.Protocol.DispenseVolume != 5 {
		t.Fatalf("unexpected dispense volume %v", cfg.Protocol.DispenseVolume)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIQUIDPLAN_NTFY_TOPIC", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if len(cfg.Reagents) != 4 {
		t.Fatalf("expected 4 reagents in sample, got %d", len(cfg.Reagents))
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "runs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := config.ExpandPath("~/data")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "data") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
