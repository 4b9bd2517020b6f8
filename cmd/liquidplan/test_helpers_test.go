package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidplan/internal/config"
	"liquidplan/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("LIQUIDPLAN_NTFY_TOPIC", "")

	configPath := filepath.Join(base, "liquidplan.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeTestConfig writes the fields the CLI tests vary; everything else comes
// from the built-in defaults when the file is loaded.
func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
output_dir = %q
log_dir = %q

[logging]
level = "error"

[protocol]
kind = %q
name = %q
num_samples = %d
tip_recycling_in_wash = %t
tip_recycling_in_elution = %t

[pipette]
name = %q
tip_racks = %d
tip_capacity = %g

[metrics]
textfile_path = %q
`,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Protocol.Kind,
		cfg.Protocol.Name,
		cfg.Protocol.NumSamples,
		cfg.Protocol.TipRecyclingInWash,
		cfg.Protocol.TipRecyclingInElution,
		cfg.Pipette.Name,
		cfg.Pipette.TipRacks,
		cfg.Pipette.TipCapacity,
		cfg.Metrics.TextfilePath,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
