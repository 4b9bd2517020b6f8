package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"liquidplan/internal/config"
	"liquidplan/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckReservoir_Default(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	result := CheckReservoir(cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.HasPrefix(result.Detail, "7 of 12") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckReservoir_Overfull(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithReagent(config.ReagentElution, func(r *config.Reagent) {
		r.Channels = 4
	}))
	result := CheckReservoir(cfg)
	if result.Passed {
		t.Fatal("expected failure when elution overflows the reservoir")
	}
}

func TestCheckSimulation_Passes(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTipRecycling(false, false))
	result := CheckSimulation(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "768 tips") || !strings.Contains(result.Detail, "1 tip rack refill") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckSimulation_ChannelExhaustion(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithReagent(config.ReagentBeads, func(r *config.Reagent) {
		r.Channels = 1
	}))
	result := CheckSimulation(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for a single beads channel")
	}
	if !strings.Contains(result.Detail, "beads") {
		t.Fatalf("detail should name the reagent: %q", result.Detail)
	}
}

func TestCheckNtfy_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"healthy":true}`))
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/liquidplan")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckNtfy_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := CheckNtfy(context.Background(), srv.URL+"/liquidplan")
	if result.Passed {
		t.Fatal("expected failure for server error")
	}
}

func TestCheckNtfy_InvalidURL(t *testing.T) {
	result := CheckNtfy(context.Background(), "not a url")
	if result.Passed {
		t.Fatal("expected failure for invalid url")
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	results := RunAll(context.Background(), cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results without ntfy, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestRunAll_SkipsSimulationWhenReservoirFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithReagent(config.ReagentElution, func(r *config.Reagent) {
		r.Channels = 4
	}))
	results := RunAll(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "Protocol simulation" {
			t.Fatal("simulation should be skipped after a reservoir failure")
		}
	}
	if failed := Failed(results); len(failed) != 3 {
		t.Fatalf("expected missing directories and reservoir to fail, got %+v", failed)
	}
}
