// Package analysis turns collected profile data into analysis results.
//
// The engine prefers the configured AI provider and treats the deterministic
// heuristics as the always-available fallback: any transport failure, timeout,
// or malformed model response downgrades the run to heuristics instead of
// failing the task. Both paths produce the same Result document; Source
// records which one ran.
package analysis
