package signal

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// core is the identity of one signal instance. The registry keys
// connections by (sender, *core).
type core struct {
	name     string
	sender   any
	registry *Registry
	depth    atomic.Int32
}

// Signal is a typed emission point owned by a sender.
//
// Slots run synchronously, in connection order, on the goroutine that
// calls Emit. A slot that connects another slot does not see it run in the
// same emission; a slot that disconnects a later slot prevents that slot
// from running in the same emission.
type Signal[T any] struct {
	core *core

	// tap observes every emission that is not blocked, before slots run.
	tap func(T)
}

// New creates a signal owned by sender. New panics if sender is nil or
// not comparable.
func New[T any](sender any, opts ...Option) *Signal[T] {
	return newSignal[T](sender, buildOptions(opts))
}

func newSignal[T any](sender any, o options) *Signal[T] {
	mustComparable(sender)
	if o.name == "" {
		o.name = fmt.Sprintf("%T<%s>", sender, reflect.TypeFor[T]())
	}
	return &Signal[T]{core: &core{
		name:     o.name,
		sender:   sender,
		registry: o.registry,
	}}
}

// Connect attaches slot, optionally on behalf of receiver (nil for none).
// It returns false if the same slot is already connected with the same
// receiver. Connect panics if slot is nil or receiver is not comparable.
func (s *Signal[T]) Connect(slot *Slot[T], receiver any) bool {
	if slot == nil {
		panic(ErrNilSlot)
	}
	if receiver != nil {
		mustComparable(receiver)
	}
	_, added := s.core.registry.add(s.core, slot, receiver)
	return added
}

// Disconnect detaches slot connected with receiver. A nil slot detaches
// every slot connected with receiver; a nil slot and nil receiver detach
// everything. It returns whether anything was removed.
func (s *Signal[T]) Disconnect(slot *Slot[T], receiver any) bool {
	if receiver != nil && !isComparable(receiver) {
		return false
	}
	if slot == nil {
		return s.core.registry.remove(s.core, nil, receiver)
	}
	return s.core.registry.remove(s.core, slot, receiver)
}

// DisconnectAll detaches every slot from this signal.
func (s *Signal[T]) DisconnectAll() {
	s.core.registry.remove(s.core, nil, nil)
}

// Emit calls every connected slot with (sender, args). It does nothing
// while the signal or its sender is blocked. Slot errors and panics are
// passed to the registry's exception handler and never reach the caller.
func (s *Signal[T]) Emit(args T) {
	r := s.core.registry
	if s.Blocked() {
		r.blockedEmissions.Add(1)
		return
	}
	r.emissions.Add(1)

	if s.tap != nil {
		s.tap(args)
	}

	for _, c := range r.snapshot(s.core) {
		// Disconnected by an earlier slot in this pass.
		if !c.Alive() {
			continue
		}
		slot := c.slot.(*Slot[T])
		r.deliver(c, func() error {
			return slot.Call(s.core.sender, args)
		})
	}
}

// Block suppresses emission of this signal while body runs and returns
// body's error. Blocks nest; the depth is released on every exit path and
// a panic in body is re-raised after release.
func (s *Signal[T]) Block(body func() error) error {
	s.core.depth.Add(1)
	defer s.core.depth.Add(-1)
	return body()
}

// Blocked reports whether Emit is currently suppressed, either by Block or
// by the registry's BlockAll for the sender.
func (s *Signal[T]) Blocked() bool {
	return s.core.depth.Load() > 0 || s.core.registry.senderBlocked(s.core.sender)
}

// Len returns the number of live connections.
func (s *Signal[T]) Len() int {
	return s.core.registry.count(s.core)
}

// Sender returns the owning object.
func (s *Signal[T]) Sender() any { return s.core.sender }

// Name returns the diagnostic name.
func (s *Signal[T]) Name() string { return s.core.name }

// Registry returns the registry holding this signal's connections.
func (s *Signal[T]) Registry() *Registry { return s.core.registry }

// Blocker is implemented by Signal and Stream.
type Blocker interface {
	Block(body func() error) error
}

// Blocking runs body inside b.Block and passes its result through.
func Blocking[R any](b Blocker, body func() (R, error)) (R, error) {
	var out R
	err := b.Block(func() error {
		var err error
		out, err = body()
		return err
	})
	return out, err
}
