// Package history persists protocol runs and their step timings in SQLite.
//
// Each run gets a row keyed by its run id with the protocol, sample count,
// outcome, and tip consumption; each executed or skipped step gets a row with
// the same columns as the tab-separated execution log. The store uses the pure
// Go modernc.org/sqlite driver, WAL journaling, and retries writes that hit
// SQLITE_BUSY so a `liquidplan history` listing can run next to an active run.
package history
