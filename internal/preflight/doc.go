// Package preflight provides readiness checks run before a protocol touches
// the deck.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before every run and refuses to start
//     when any check fails.
//   - The CLI "liquidplan preflight" command prints every result.
//
// The ntfy check is skipped when no topic is configured.
package preflight
