// Package services defines shared utilities consumed by the protocol runner,
// the bookkeeping components, and the liquid-handling collaborator.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, step numbers, and reagent
//     names for logging.
//   - Structured error markers plus the Wrap helper that separate fatal
//     configuration and logic failures from operator-recoverable conditions.
//
// Use these helpers when wiring new protocol steps so operational behaviour
// (error severity, observability) stays uniform across the run.
package services
