// Package protocol drives liquid-handling workflows step by step.
//
// A Protocol contributes an ordered list of step definitions; a Session owns
// the run-scoped state they share: the reagent ledger, the tip tracker, the
// liquid handler, and the waiter that blocks for delays and operator pauses.
// Session.Run applies the configured step overrides, executes enabled steps in
// order, and returns a Result with the execution log, tip and reagent reports,
// and every planned aspiration.
//
// Two workflows are provided: Station B magnetic bead extraction and the
// Station A/C column dispense. Both run against the liquid.Handler contract,
// so planning and execution differ only in the waiter passed in.
package protocol
