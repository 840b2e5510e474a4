// Package collector orchestrates profile collection for analysis tasks.
//
// A quick collection is a single primary fetch. A deep collection adds a
// concurrent fan-out over the profile's secondary sections and bounded
// fetches of cross-platform profiles linked from the primary one. The primary
// fetch failing fails the whole collection; every secondary failure is
// recorded on the CollectedData instead, because a partial profile is still
// worth analyzing.
package collector
