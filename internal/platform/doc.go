// Package platform defines the pluggable profile collection adapters.
//
// Every platform Spyglass can analyze is served by an Adapter, selected per
// platform in the configuration. The HTTP adapter talks to a scrape gateway;
// the offline adapter synthesizes deterministic profiles for development and
// tests without touching the network. Adapter failures carry an ErrorKind so
// the collector can distinguish a missing profile from a rate limit or a
// timeout when deciding whether partial results are still worth analyzing.
package platform
