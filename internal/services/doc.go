// Package services defines shared utilities consumed by the task pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, platform names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     messages and classification consistent across components.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the system.
package services
