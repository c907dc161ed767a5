package luaslot

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/slotwire/internal/logging"
)

// Host wraps a gopher-lua state shared by the slots bound to it.
type Host struct {
	mu     sync.Mutex
	L      *lua.LState
	log    *logrus.Entry
	closed bool
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the logger behind the Lua log function.
func WithLogger(entry *logrus.Entry) HostOption {
	return func(h *Host) {
		if entry != nil {
			h.log = entry
		}
	}
}

// NewHost creates a host with the safe standard libraries opened.
func NewHost(opts ...HostOption) (*Host, error) {
	h := &Host{
		log: logging.WithComponent("lua"),
	}
	for _, opt := range opts {
		opt(h)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(L)
	h.L = L
	L.SetGlobal("log", L.NewFunction(h.luaLog))

	return h, nil
}

// openSafeLibraries opens only libraries without file or process access.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// luaLog implements log(msg [, level]) for scripts.
func (h *Host) luaLog(L *lua.LState) int {
	msg := L.CheckString(1)
	level, err := logrus.ParseLevel(L.OptString(2, "info"))
	if err != nil {
		level = logrus.InfoLevel
	}
	h.log.Log(level, msg)
	return 0
}

// DoFile executes a Lua file.
func (h *Host) DoFile(path string) error {
	return h.do(func() error { return h.L.DoFile(path) })
}

// DoString executes a Lua chunk.
func (h *Host) DoString(code string) error {
	return h.do(func() error { return h.L.DoString(code) })
}

func (h *Host) do(fn func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}
	return withRecovery(fn)
}

// Function returns the global Lua function called name.
func (h *Host) Function(name string) (*lua.LFunction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	return h.lookup(name)
}

func (h *Host) lookup(name string) (*lua.LFunction, error) {
	v := h.L.GetGlobal(name)
	if v == lua.LNil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}
	fn, ok := v.(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotFunction, name, v.Type())
	}
	return fn, nil
}

// Call calls the global function name with Go arguments and returns its
// results converted to Go values.
func (h *Host) Call(name string, args ...any) ([]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	fn, err := h.lookup(name)
	if err != nil {
		return nil, err
	}

	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = toLua(h.L, a)
	}

	top := h.L.GetTop()
	err = withRecovery(func() error {
		return h.L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, largs...)
	})
	if err != nil {
		h.L.SetTop(top)
		return nil, err
	}

	n := h.L.GetTop() - top
	results := make([]any, n)
	for i := 0; i < n; i++ {
		results[i] = toGo(h.L.Get(top + i + 1))
	}
	h.L.Pop(n)
	return results, nil
}

// Close releases the Lua state. Slots bound to a closed host fail with
// ErrHostClosed.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.L.Close()
	h.closed = true
	return nil
}

// withRecovery turns a panic inside the Lua VM into an error.
func withRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
