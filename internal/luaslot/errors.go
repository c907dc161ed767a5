package luaslot

import "errors"

// Errors for Lua host operations.
var (
	// ErrHostClosed is returned when operating on a closed host.
	ErrHostClosed = errors.New("lua host is closed")

	// ErrFunctionNotFound is returned when a global function does not exist.
	ErrFunctionNotFound = errors.New("lua function not found")

	// ErrNotFunction is returned when a global is not a function.
	ErrNotFunction = errors.New("lua global is not a function")

	// ErrSlotRejected is returned when a Lua slot returns false.
	ErrSlotRejected = errors.New("lua slot rejected event")
)
