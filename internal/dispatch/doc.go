// Package dispatch moves pending tasks onto workers and drives each claimed
// task through the collect-analyze-persist pipeline.
//
// Two substrates implement the Dispatcher interface: an in-process worker
// pool that polls the store (nudged on submit), and an asynq server over
// Redis for multi-node fleets. Both share the Runner, which owns claiming,
// heartbeats, progress checkpoints, cancellation watching, and the terminal
// store writes. Exactly-once execution comes from the store's claim CAS, not
// from the delivery substrate.
package dispatch
