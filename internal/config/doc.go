// Package config loads, normalizes, and validates Spyglass configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SPYGLASS_API_KEY. The Config type centralizes every knob the daemon and CLI
// need, from store and queue backends to per-platform adapter settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
