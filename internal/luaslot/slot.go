package luaslot

import (
	"fmt"

	"github.com/dshills/slotwire/internal/signal"
)

// New returns a slot that calls the global Lua function fn on host.
// The function must exist when New is called; it is looked up again on
// every call so a script may redefine it.
func New[T any](host *Host, fn string) (*signal.Slot[T], error) {
	if _, err := host.Function(fn); err != nil {
		return nil, err
	}

	slot := signal.NewSlot(func(sender any, args T) error {
		results, err := host.Call(fn, senderValue(sender), args)
		if err != nil {
			return fmt.Errorf("lua slot %s: %w", fn, err)
		}
		return rejection(results)
	})
	return slot.Named("lua:" + fn), nil
}

// senderValue is what a Lua slot sees as its sender.
func senderValue(sender any) string {
	if s, ok := sender.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", sender)
}

// rejection maps a `return false[, reason]` from Lua to an error.
func rejection(results []any) error {
	if len(results) == 0 {
		return nil
	}
	if ok, isBool := results[0].(bool); !isBool || ok {
		return nil
	}
	if len(results) > 1 && results[1] != nil {
		return fmt.Errorf("%w: %v", ErrSlotRejected, results[1])
	}
	return ErrSlotRejected
}
