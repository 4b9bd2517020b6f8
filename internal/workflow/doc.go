// Package workflow runs a configured protocol end to end.
//
// The Manager owns everything around a protocol session: the one-run-per-deck
// file lock, the run identifier and run directory, the command journal fed
// by the simulator, the per-run log file, preflight checks, run history rows,
// the tab-separated execution log, the Prometheus textfile, and the
// completion or failure notification.
//
// Plan runs the same session against the simulator without any of that
// bookkeeping so the CLI can show aspiration plans and tip usage up front.
package workflow
