package signal

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Connection binds a signal to a slot and an optional receiver.
//
// Two connections are equal when they share the signal, the slot pointer
// and the receiver. A nil receiver makes the slot itself the anchor used
// for receiver-based teardown.
type Connection struct {
	id       string
	seq      uint64
	sender   any
	signal   *core
	slot     any
	receiver any
	dead     atomic.Bool
}

func newConnection(seq uint64, sig *core, slot, receiver any) *Connection {
	return &Connection{
		id:       uuid.NewString(),
		seq:      seq,
		sender:   sig.sender,
		signal:   sig,
		slot:     slot,
		receiver: receiver,
	}
}

// ID returns the unique connection identifier.
func (c *Connection) ID() string { return c.id }

// Sender returns the object owning the signal.
func (c *Connection) Sender() any { return c.sender }

// Receiver returns the receiver, or nil if the connection has none.
func (c *Connection) Receiver() any { return c.receiver }

// SignalName returns the name of the connected signal.
func (c *Connection) SignalName() string { return c.signal.name }

// SlotName returns the diagnostic name of the slot.
func (c *Connection) SlotName() string { return slotName(c.slot) }

// Alive returns false once the connection has been disconnected.
func (c *Connection) Alive() bool { return !c.dead.Load() }

// anchor is the key under which the connection is indexed by receiver.
func (c *Connection) anchor() any {
	if c.receiver != nil {
		return c.receiver
	}
	return c.slot
}

func (c *Connection) matches(sig *core, slot, receiver any) bool {
	return c.signal == sig && c.slot == slot && c.receiver == receiver
}
