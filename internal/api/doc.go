// Package api defines wire-format types and converters for the daemon
// HTTP API. It translates internal task rows into transport-friendly
// DTOs that the CLI and other consumers can render without coupling to
// internal types.
//
// # Key Types
//
// Task: transport representation of a task row with status, progress,
// and lifecycle timestamps.
//
// StatusResponse: daemon runtime snapshot with queue counts, platform
// list, and store reachability.
//
// ErrorResponse: the envelope every non-2xx response uses, carrying a
// stable machine-readable code alongside the human-readable message.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (task status, depth) are
// exposed as lowercase strings. Timestamps use RFC3339 with
// milliseconds. Result payloads are passed through verbatim to avoid
// double-encoding.
package api
