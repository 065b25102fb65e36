// Package database provides SQLite-based storage for the run history.
//
// HistoryDB stores:
//   - Finished cycles with their totals and full summary
//   - Per-credential results of every cycle
//   - Proxy lines rejected by the parser or by a failed request
//
// The history is write-mostly: the claim loop appends to it and the history
// command reads it back. Nothing in the claim loop depends on it, so a
// failed write never stops a cycle.
package database
