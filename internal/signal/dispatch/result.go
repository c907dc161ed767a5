package dispatch

import "time"

// Result represents the outcome of one slot invocation.
type Result struct {
	// Success is true if the slot completed without error or panic.
	Success bool

	// Error is the error returned by the slot, if any.
	Error error

	// Panicked is true if the slot panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the slot took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}
