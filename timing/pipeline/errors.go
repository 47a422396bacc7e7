package pipeline

import "errors"

var (
	// ErrBackpressure is returned when the issue queue or reorder buffer is
	// full. The caller stalls dispatch and retries next cycle.
	ErrBackpressure = errors.New("backpressure")

	// ErrUnitBusy is returned when a functional unit already holds an
	// instruction. The entry stays queued and is retried next cycle.
	ErrUnitBusy = errors.New("functional unit busy")

	// ErrResourceExhausted is returned by rename when the free list is empty.
	ErrResourceExhausted = errors.New("no free physical register")

	// ErrInvariantViolation reports a scheduler bug: committing an
	// unfinished instruction, freeing a register twice, or breaking program
	// order.
	ErrInvariantViolation = errors.New("invariant violation")
)
