package signal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object struct {
	name string
}

func newObject(name string) *object { return &object{name: name} }

// captureErrors installs a handler on r that records every failure.
func captureErrors(t *testing.T, r *Registry) *[]error {
	t.Helper()
	var errs []error
	prev := r.SetExceptionHandler(func(err error) {
		errs = append(errs, err)
	})
	t.Cleanup(func() { r.SetExceptionHandler(prev) })
	return &errs
}

func TestSignal_EmitToReceivers(t *testing.T) {
	r := NewRegistry()
	obj := newObject("obj")
	two := New[int](obj, WithRegistry(r), WithName("two"))

	type seen struct {
		sender any
		value  int
	}
	var a, b []seen

	recvA, recvB := newObject("a"), newObject("b")
	require.True(t, two.Connect(SlotFunc(func(sender any, v int) {
		a = append(a, seen{sender, v})
	}), recvA))
	require.True(t, two.Connect(SlotFunc(func(sender any, v int) {
		b = append(b, seen{sender, v})
	}), recvB))

	two.Emit(15)

	assert.Equal(t, []seen{{obj, 15}}, a)
	assert.Equal(t, []seen{{obj, 15}}, b)
}

func TestSignal_ConnectIsIdempotent(t *testing.T) {
	r := NewRegistry()
	obj := newObject("obj")
	one := New[struct{}](obj, WithRegistry(r))

	calls := 0
	h := SlotFunc(func(any, struct{}) { calls++ })

	assert.True(t, one.Connect(h, nil))
	assert.False(t, one.Connect(h, nil))
	assert.Equal(t, 1, one.Len())

	one.Emit(struct{}{})
	assert.Equal(t, 1, calls)
}

func TestSignal_SameSlotDifferentReceivers(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("s"), WithRegistry(r))
	h := SlotFunc(func(any, int) {})

	assert.True(t, sig.Connect(h, nil))
	assert.True(t, sig.Connect(h, newObject("r1")))
	assert.True(t, sig.Connect(h, newObject("r2")))
	assert.Equal(t, 3, sig.Len())
}

func TestSignal_EmissionOrder(t *testing.T) {
	r := NewRegistry()
	obj := newObject("obj")
	first := New[int](obj, WithRegistry(r))
	other := New[string](obj, WithRegistry(r))

	var order []string
	slot := func(name string) *Slot[int] {
		return SlotFunc(func(any, int) { order = append(order, name) })
	}

	first.Connect(slot("s1"), nil)
	other.Connect(SlotFunc(func(any, string) { order = append(order, "other") }), nil)
	first.Connect(slot("s2"), nil)
	other.Connect(SlotFunc(func(any, string) { order = append(order, "other2") }), nil)
	first.Connect(slot("s3"), nil)

	first.Emit(1)
	assert.Equal(t, []string{"s1", "s2", "s3"}, order)
}

func TestSignal_SlotFailureIsolation(t *testing.T) {
	tests := []struct {
		name   string
		middle *Slot[int]
		check  func(t *testing.T, err error)
	}{
		{
			name: "error",
			middle: NewSlot(func(any, int) error {
				return errors.New("middle failed")
			}).Named("middle"),
			check: func(t *testing.T, err error) {
				var slotErr *SlotError
				require.ErrorAs(t, err, &slotErr)
				assert.Equal(t, "middle", slotErr.Slot)
				assert.Equal(t, "values", slotErr.Signal)
				assert.EqualError(t, slotErr.Err, "middle failed")
			},
		},
		{
			name:   "panic",
			middle: SlotFunc(func(any, int) { panic("middle panicked") }),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrSlotPanic)
				var panicErr *PanicError
				require.ErrorAs(t, err, &panicErr)
				assert.Equal(t, "middle panicked", panicErr.Value)
				assert.NotEmpty(t, panicErr.Stack)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			errs := captureErrors(t, r)
			sig := New[int](newObject("obj"), WithRegistry(r), WithName("values"))

			var got []int
			sig.Connect(SlotFunc(func(_ any, v int) { got = append(got, v) }), nil)
			sig.Connect(tt.middle, nil)
			sig.Connect(SlotFunc(func(_ any, v int) { got = append(got, v*10) }), nil)

			assert.NotPanics(t, func() { sig.Emit(7) })

			assert.Equal(t, []int{7, 70}, got)
			require.Len(t, *errs, 1)
			tt.check(t, (*errs)[0])
		})
	}
}

func TestSignal_ConnectDuringEmission(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))

	lateCalls := 0
	late := SlotFunc(func(any, int) { lateCalls++ })
	sig.Connect(SlotFunc(func(any, int) { sig.Connect(late, nil) }), nil)

	sig.Emit(1)
	assert.Equal(t, 0, lateCalls, "slot connected during emission must not run in the same pass")

	sig.Emit(2)
	assert.Equal(t, 1, lateCalls)
}

func TestSignal_DisconnectDuringEmission(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))

	var order []string
	second := SlotFunc(func(any, int) { order = append(order, "second") })
	third := SlotFunc(func(any, int) { order = append(order, "third") })

	first := SlotFunc(func(any, int) {
		order = append(order, "first")
		sig.Disconnect(third, nil)
	})
	sig.Connect(first, nil)
	sig.Connect(second, nil)
	sig.Connect(third, nil)

	sig.Emit(1)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSignal_DisconnectAlreadyPassedSlot(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))

	calls := 0
	var self *Slot[int]
	self = SlotFunc(func(any, int) {
		calls++
		sig.Disconnect(self, nil)
	})
	sig.Connect(self, nil)

	sig.Emit(1)
	sig.Emit(2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, sig.Len())
}

func TestSignal_Disconnect(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))
	recv := newObject("recv")
	h := SlotFunc(func(any, int) {})

	assert.False(t, sig.Disconnect(h, nil), "never connected")

	sig.Connect(h, recv)
	assert.False(t, sig.Disconnect(h, nil), "receiver is part of the identity")
	assert.True(t, sig.Disconnect(h, recv))
	assert.False(t, sig.Disconnect(h, recv))

	// Reconnecting after a disconnect is allowed.
	assert.True(t, sig.Connect(h, recv))
}

func TestSignal_DisconnectUntargeted(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))
	recv := newObject("recv")

	sig.Connect(SlotFunc(func(any, int) {}), recv)
	sig.Connect(SlotFunc(func(any, int) {}), recv)
	sig.Connect(SlotFunc(func(any, int) {}), nil)

	assert.True(t, sig.Disconnect(nil, recv))
	assert.Equal(t, 1, sig.Len())

	assert.True(t, sig.Disconnect(nil, nil))
	assert.Equal(t, 0, sig.Len())
	assert.False(t, sig.Disconnect(nil, nil))
}

func TestSignal_DisconnectAll(t *testing.T) {
	r := NewRegistry()
	obj := newObject("obj")
	a := New[int](obj, WithRegistry(r))
	b := New[int](obj, WithRegistry(r))

	a.Connect(SlotFunc(func(any, int) {}), nil)
	a.Connect(SlotFunc(func(any, int) {}), nil)
	b.Connect(SlotFunc(func(any, int) {}), nil)

	a.DisconnectAll()
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 1, b.Len(), "other signals on the same sender are untouched")
}

func TestSignal_DistinctIdentitiesOnSameSender(t *testing.T) {
	r := NewRegistry()
	obj := newObject("obj")
	ints := New[int](obj, WithRegistry(r))
	strs := New[string](obj, WithRegistry(r))

	var got []string
	ints.Connect(SlotFunc(func(_ any, v int) { got = append(got, fmt.Sprint("int:", v)) }), nil)
	strs.Connect(SlotFunc(func(_ any, v string) { got = append(got, "str:"+v) }), nil)

	ints.Emit(1)
	strs.Emit("x")
	assert.Equal(t, []string{"int:1", "str:x"}, got)
}

func TestSignal_Block(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))

	var got []int
	sig.Connect(SlotFunc(func(_ any, v int) { got = append(got, v) }), nil)

	err := sig.Block(func() error {
		sig.Emit(1)
		return sig.Block(func() error {
			sig.Emit(2)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Empty(t, got)

	sig.Emit(3)
	assert.Equal(t, []int{3}, got)
	assert.Equal(t, uint64(2), r.Stats().BlockedEmissions)
}

func TestSignal_NestedBlockResumesAtOutermost(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))

	var got []int
	sig.Connect(SlotFunc(func(_ any, v int) { got = append(got, v) }), nil)

	_ = sig.Block(func() error {
		_ = sig.Block(func() error { return nil })
		sig.Emit(1)
		assert.True(t, sig.Blocked())
		return nil
	})
	assert.False(t, sig.Blocked())
	sig.Emit(2)
	assert.Equal(t, []int{2}, got)
}

func TestSignal_BlockPropagatesErrorAndPanic(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))
	boom := errors.New("boom")

	assert.ErrorIs(t, sig.Block(func() error { return boom }), boom)
	assert.False(t, sig.Blocked())

	assert.PanicsWithValue(t, "body", func() {
		_ = sig.Block(func() error { panic("body") })
	})
	assert.False(t, sig.Blocked(), "depth released after panic")
}

func TestBlocking_ReturnsValue(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))

	v, err := Blocking(sig, func() (string, error) {
		assert.True(t, sig.Blocked())
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestRegistry_BlockAll(t *testing.T) {
	r := NewRegistry()
	obj, other := newObject("obj"), newObject("other")
	a := New[int](obj, WithRegistry(r))
	b := New[string](obj, WithRegistry(r))
	c := New[int](other, WithRegistry(r))

	var got []string
	a.Connect(SlotFunc(func(any, int) { got = append(got, "a") }), nil)
	b.Connect(SlotFunc(func(any, string) { got = append(got, "b") }), nil)
	c.Connect(SlotFunc(func(any, int) { got = append(got, "c") }), nil)

	err := r.BlockAll(obj, func() error {
		return r.BlockAll(obj, func() error {
			a.Emit(1)
			b.Emit("x")
			c.Emit(1)
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got)

	a.Emit(1)
	b.Emit("x")
	assert.Equal(t, []string{"c", "a", "b"}, got)
	assert.Zero(t, r.Stats().BlockedSenders)
}

func TestRegistry_BlockAllReleasesOnPanic(t *testing.T) {
	r := NewRegistry()
	obj := newObject("obj")
	sig := New[int](obj, WithRegistry(r))

	assert.Panics(t, func() {
		_ = r.BlockAll(obj, func() error { panic("oops") })
	})
	assert.False(t, sig.Blocked())
}

func TestSignal_ProgrammerErrors(t *testing.T) {
	r := NewRegistry()

	assert.PanicsWithValue(t, ErrNilSender, func() { New[int](nil, WithRegistry(r)) })
	assert.PanicsWithValue(t, ErrNotComparable, func() { New[int]([]int{1}, WithRegistry(r)) })

	sig := New[int](newObject("obj"), WithRegistry(r))
	assert.PanicsWithValue(t, ErrNilSlot, func() { sig.Connect(nil, nil) })
	assert.PanicsWithValue(t, ErrNilSlot, func() { NewSlot[int](nil) })
	assert.PanicsWithValue(t, ErrNilSlot, func() { SlotFunc[int](nil) })
	assert.PanicsWithValue(t, ErrNotComparable, func() {
		sig.Connect(SlotFunc(func(any, int) {}), map[string]int{})
	})
	assert.PanicsWithValue(t, ErrNotComparable, func() {
		sig.Connect(SlotFunc(func(any, int) {}), boxed{v: []int{1}})
	})
	assert.PanicsWithValue(t, ErrNotComparable, func() {
		New[int](boxed{v: map[string]int{}}, WithRegistry(r))
	})
	assert.PanicsWithValue(t, ErrNotComparable, func() {
		_ = r.BlockAll(boxed{v: []int{1}}, func() error { return nil })
	})
	assert.Zero(t, r.Count())
}

func TestSignal_DefaultName(t *testing.T) {
	r := NewRegistry()
	sig := New[error](newObject("obj"), WithRegistry(r))
	assert.Equal(t, "*signal.object<error>", sig.Name())
}

func TestSignal_EmitWithoutConnections(t *testing.T) {
	r := NewRegistry()
	sig := New[int](newObject("obj"), WithRegistry(r))
	assert.NotPanics(t, func() { sig.Emit(1) })
	assert.Equal(t, uint64(1), r.Stats().Emissions)
}
