// Package logging assembles structured slog loggers and formatting helpers used
// across liquidplan.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so protocol code can tag log
// lines with the run identifier, step number, reagent, and plate column. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
//
// Prefer these constructors over hand-rolled slog setup so the ledger, the tip
// tracker, and the protocol runner emit records with the same shape.
package logging
