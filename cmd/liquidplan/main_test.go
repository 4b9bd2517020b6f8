package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidplan/internal/history"
	"liquidplan/internal/testsupport"
)

func TestPlanPrintsSummary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "Beads: 2 channels from well 1 with 11600 uL each")
	requireContains(t, out, "Elution: 1 channel from well 12 with 6200 uL each")
	requireContains(t, out, "Transfer magnetic beads")
	requireContains(t, out, "768")
	if strings.Contains(strings.ToUpper(out), "ROLLOVER") {
		t.Fatal("aspiration table printed without --aspirations")
	}
}

func TestPlanJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithTipRecycling(true, true))

	out, _, err := runCLI(t, []string{"plan", "--json", "--aspirations"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}
	var decoded planOutput
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode plan output: %v\n%s", err, out)
	}
	if decoded.Result == nil || decoded.Result.TipsUsed() != 480 {
		t.Fatalf("unexpected plan result %+v", decoded.Result)
	}
	if len(decoded.Volumes) != 4 {
		t.Fatalf("volumes = %v, want 4 lines", decoded.Volumes)
	}
	rollovers := 0
	for _, rec := range decoded.Result.Aspirations {
		if rec.Rollover {
			rollovers++
		}
	}
	if rollovers == 0 {
		t.Fatal("expected at least one channel rollover in a full plate")
	}
}

func TestPlanYAML(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithDispenseProtocol(), testsupport.WithSamples(16))

	out, _, err := runCLI(t, []string{"plan", "--yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --yaml: %v", err)
	}
	requireContains(t, out, "kind: dispense")
	requireContains(t, out, "used: 16")
}

func TestOutputFlagsConflict(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"plan", "--json", "--yaml"}, env.configPath); err == nil {
		t.Fatal("expected error when both --json and --yaml are set")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSamples(8), testsupport.WithMetricsTextfile())

	out, _, err := runCLI(t, []string{"run", "--no-wait"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Command journal")
	requireContains(t, out, "time_log.tsv")
	if _, err := os.Stat(env.cfg.Metrics.TextfilePath); err != nil {
		t.Fatalf("metrics textfile missing: %v", err)
	}

	out, _, err = runCLI(t, []string{"history", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusCompleted {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "show", runs[0].ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "Dry beads")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "test-extraction")

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Cleared 1 runs")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestHistoryShowUnknownRun(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"history", "show", "does-not-exist"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestPreflightCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err != nil {
		t.Fatalf("preflight: %v\n%s", err, out)
	}
	requireContains(t, out, "Protocol simulation")
	requireContains(t, out, "7 of 12 wells provisioned")
	for _, dir := range []string{env.cfg.Paths.OutputDir, env.cfg.Paths.LogDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("preflight should create %s: %v", dir, err)
		}
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "not configured")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Wash 1: 2 channels from well 5")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("validate sample config: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}
