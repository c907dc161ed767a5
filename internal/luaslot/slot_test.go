package luaslot

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/slotwire/internal/signal"
)

type document struct{ title string }

func (d *document) String() string { return "doc:" + d.title }

type edit struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) handle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func TestNew_DeliversEmissionsToLua(t *testing.T) {
	h := newHost(t)
	require.NoError(t, h.DoString(`
		seen = {}
		function on_edit(sender, e)
			table.insert(seen, sender .. "@" .. e.line .. ":" .. e.text)
		end
		function seen_count() return #seen, seen[1], seen[2] end
	`))

	r := signal.NewRegistry()
	doc := &document{title: "notes"}
	edited := signal.New[edit](doc, signal.WithRegistry(r))

	slot, err := New[edit](h, "on_edit")
	require.NoError(t, err)
	assert.Equal(t, "lua:on_edit", slot.Name())
	require.True(t, edited.Connect(slot, h))

	edited.Emit(edit{Line: 3, Text: "hello"})
	edited.Emit(edit{Line: 4, Text: "world"})

	got, err := h.Call("seen_count")
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), "doc:notes@3:hello", "doc:notes@4:world"}, got)

	// Disconnecting everything bound to the host stops delivery.
	r.DisconnectReceiver(h)
	edited.Emit(edit{Line: 5})
	got, err = h.Call("seen_count")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[0])
}

func TestNew_MissingFunction(t *testing.T) {
	h := newHost(t)
	_, err := New[int](h, "nope")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestNew_LuaErrorsReachExceptionHandler(t *testing.T) {
	h := newHost(t)
	require.NoError(t, h.DoString(`
		function fails(_, n) error("bad value " .. n) end
		function rejects(_, n) return false, "too small" end
		function refuses(_, n) return false end
		function accepts(_, n) return true end
	`))

	sink := &errorSink{}
	r := signal.NewRegistry(signal.WithExceptionHandler(sink.handle))
	sig := signal.New[int](&document{}, signal.WithRegistry(r), signal.WithName("counter"))

	for _, fn := range []string{"fails", "rejects", "refuses", "accepts"} {
		slot, err := New[int](h, fn)
		require.NoError(t, err)
		sig.Connect(slot, nil)
	}

	sig.Emit(1)

	require.Len(t, sink.errs, 3)
	assert.Contains(t, sink.errs[0].Error(), "bad value 1")
	assert.ErrorIs(t, sink.errs[1], ErrSlotRejected)
	assert.Contains(t, sink.errs[1].Error(), "too small")
	assert.ErrorIs(t, sink.errs[2], ErrSlotRejected)

	var slotErr *signal.SlotError
	require.True(t, errors.As(sink.errs[0], &slotErr))
	assert.Equal(t, "counter", slotErr.Signal)
	assert.Equal(t, "lua:fails", slotErr.Slot)
}

func TestNew_ClosedHost(t *testing.T) {
	h, err := NewHost()
	require.NoError(t, err)
	require.NoError(t, h.DoString(`function f() end`))

	slot, err := New[string](h, "f")
	require.NoError(t, err)
	require.NoError(t, h.Close())

	assert.ErrorIs(t, slot.Call(nil, "x"), ErrHostClosed)
}
