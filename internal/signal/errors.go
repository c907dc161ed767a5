package signal

import (
	"errors"
	"fmt"
)

// Sentinel errors for the signal package.
var (
	// ErrNilSlot is the panic value when a nil slot or slot function is used.
	ErrNilSlot = errors.New("slot cannot be nil")

	// ErrNilSender is the panic value when a signal is created without a sender.
	ErrNilSender = errors.New("sender cannot be nil")

	// ErrNotComparable is the panic value when a sender or receiver cannot
	// be used as an identity key.
	ErrNotComparable = errors.New("object is not comparable")

	// ErrSlotPanic matches any *PanicError via errors.Is.
	ErrSlotPanic = errors.New("slot panicked")

	// ErrStreamStopped is returned by Iterator.Next when the iteration has
	// been terminated by Stop, Close, or a newer iteration.
	ErrStreamStopped = errors.New("stream iteration stopped")
)

// SlotError wraps an error returned by a slot during emission.
type SlotError struct {
	// Signal is the name of the emitting signal.
	Signal string

	// Slot is the name of the failing slot, if it has one.
	Slot string

	// ConnectionID identifies the connection that failed.
	ConnectionID string

	// Sender is the object that emitted.
	Sender any

	// Receiver is the receiver of the connection, or nil.
	Receiver any

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s on signal %s: %v", nameOr(e.Slot, e.ConnectionID), e.Signal, e.Err)
}

// Unwrap returns the underlying error.
func (e *SlotError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic raised by a slot during emission.
type PanicError struct {
	// Signal is the name of the emitting signal.
	Signal string

	// Slot is the name of the panicking slot, if it has one.
	Slot string

	// ConnectionID identifies the connection that panicked.
	ConnectionID string

	// Sender is the object that emitted.
	Sender any

	// Receiver is the receiver of the connection, or nil.
	Receiver any

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("slot %s on signal %s panicked: %v", nameOr(e.Slot, e.ConnectionID), e.Signal, e.Value)
}

// Is allows errors.Is to match PanicError with ErrSlotPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrSlotPanic
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func nameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}
