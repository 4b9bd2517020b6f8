package testsupport

import (
	"context"
	"testing"

	"liquidplan/internal/config"
	"liquidplan/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartRun inserts a running row for tests using the provided store.
func StartRun(t testing.TB, store *history.Store, id, protocol string) history.Run {
	t.Helper()

	run := history.Run{ID: id, Protocol: protocol, Kind: config.ProtocolExtraction, NumSamples: 96}
	if err := store.StartRun(context.Background(), run); err != nil {
		t.Fatalf("store.StartRun: %v", err)
	}
	return run
}
