// Package liquid defines the liquid-handling collaborator the protocols drive.
//
// Handler covers liquid motion, tip motion, and deck modules on opaque
// locations. Waiter covers the blocking delay and operator pause. Simulator is
// the in-process Handler: it checks tip and volume bookkeeping, keeps an
// operation history, and can stream every command as JSON lines to a journal
// for a downstream robot bridge.
package liquid
