// Package taskstore persists analysis tasks and exposes helpers for driving
// their lifecycle.
//
// The Store interface manages database connections, schema initialization,
// stats queries, heartbeat tracking, stale-claim recovery, and the status
// transitions that mirror the public task enum. SQLite backs the default
// single-node deployment, PostgreSQL backs shared deployments, and the memory
// store backs tests. All three enforce identical transition semantics:
// claiming is a compare-and-swap on pending, terminal transitions require a
// live processing claim, and completed results are written in the same
// transaction that stamps the task row.
//
// Treat this package as the single source of truth for task semantics; when
// you add new statuses or columns, update schema.sql and bump schemaVersion.
package taskstore
