package taskstore

import "errors"

var (
	// ErrNotFound indicates the referenced task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrNotClaimable indicates a claim attempt on a task that is not pending.
	// Concurrent workers racing for the same task see this and move on.
	ErrNotClaimable = errors.New("task not claimable")

	// ErrNotProcessing indicates a terminal transition on a task that no longer
	// holds a processing claim, typically because cancellation won the race.
	ErrNotProcessing = errors.New("task not processing")

	// ErrNotRetryable indicates a retry request against a task that is not failed.
	ErrNotRetryable = errors.New("task not retryable")

	// ErrInvalidTransition indicates a lifecycle change the state machine forbids,
	// such as cancelling an already completed task.
	ErrInvalidTransition = errors.New("invalid status transition")
)
