// Package daemon hosts the long-running spyglass process. It owns the
// single-instance lock, wires the task store, dispatcher, and HTTP API
// together, and coordinates orderly startup and shutdown. All task
// processing happens in the dispatcher; the daemon only manages
// lifecycle.
package daemon
