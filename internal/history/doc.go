// Package history keeps a SQLite log of codes the bridge sent and received.
//
// Rows are append-only and identified by a UUID; Prune trims the log to a
// fixed number of newest rows. The schema is embedded and applied on Open.
package history
