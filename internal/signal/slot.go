package signal

// Slot is a callback attached to a Signal.
//
// Slots are compared by pointer: connecting the same *Slot twice with the
// same receiver is a no-op, while two slots wrapping the same function are
// distinct. Keep the *Slot around if you intend to disconnect it.
type Slot[T any] struct {
	fn   func(sender any, args T) error
	name string
}

// NewSlot wraps fn as a slot. A returned error is routed to the exception
// handler of the emitting signal's registry. NewSlot panics with ErrNilSlot
// if fn is nil.
func NewSlot[T any](fn func(sender any, args T) error) *Slot[T] {
	if fn == nil {
		panic(ErrNilSlot)
	}
	return &Slot[T]{fn: fn}
}

// SlotFunc wraps a slot function that cannot fail.
func SlotFunc[T any](fn func(sender any, args T)) *Slot[T] {
	if fn == nil {
		panic(ErrNilSlot)
	}
	return &Slot[T]{fn: func(sender any, args T) error {
		fn(sender, args)
		return nil
	}}
}

// Named sets a diagnostic name and returns the slot.
func (s *Slot[T]) Named(name string) *Slot[T] {
	s.name = name
	return s
}

// Name returns the diagnostic name, or "" if none was set.
func (s *Slot[T]) Name() string {
	return s.name
}

// Call invokes the slot directly.
func (s *Slot[T]) Call(sender any, args T) error {
	return s.fn(sender, args)
}

// slotName reports the name of a type-erased slot.
func slotName(slot any) string {
	if n, ok := slot.(interface{ Name() string }); ok {
		return n.Name()
	}
	return ""
}
