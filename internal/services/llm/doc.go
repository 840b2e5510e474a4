// Package llm provides an OpenAI-compatible chat client for AI-based
// profile analysis.
//
// The client sends system/user prompts to the configured provider with a
// structured request for JSON output and returns the raw JSON payload.
// Decoding and shape validation belong to the caller; DecodeLLMJSON handles
// common formatting quirks (code fences, surrounding prose).
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
// When unconfigured, callers must fall back to deterministic analysis.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, 2 attempts by default, so a single
// retry). Context cancellation aborts retries immediately.
package llm
