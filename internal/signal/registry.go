package signal

import (
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/dshills/slotwire/internal/logging"
	"github.com/dshills/slotwire/internal/signal/dispatch"
)

// Registry owns every connection between senders and receivers.
//
// Connections are indexed twice: by sender (then by signal, in insertion
// order) and by receiver anchor. Neither index keeps an object alive in any
// meaningful sense for the caller; objects must be torn down explicitly with
// DisconnectAll or ClearData before they are discarded.
//
// Registry is safe for concurrent use. Slots are always invoked with no
// registry lock held.
type Registry struct {
	mu        sync.Mutex
	senders   map[any]*senderEntry
	receivers map[any]map[*Connection]struct{}
	blocked   map[any]int
	handler   ExceptionHandler
	seq       uint64

	compactMin    int
	compactFactor float64

	executor *dispatch.Executor
	log      *logrus.Entry

	// Stats
	emissions        atomic.Uint64
	blockedEmissions atomic.Uint64
	compactions      atomic.Uint64
}

type senderEntry struct {
	lists map[*core]*connList
}

// connList holds one signal's connections in insertion order. Dead
// connections stay in place until compaction.
type connList struct {
	conns []*Connection
	dead  int
}

func (l *connList) live() int {
	return len(l.conns) - l.dead
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCompaction sets when dead connections are physically dropped from a
// signal's list: once at least minDead are dead and dead >= deadPerLive*live.
func WithCompaction(minDead int, deadPerLive float64) RegistryOption {
	return func(r *Registry) {
		if minDead > 0 {
			r.compactMin = minDead
		}
		if deadPerLive >= 0 {
			r.compactFactor = deadPerLive
		}
	}
}

// WithLogger sets the logger used for traces and the default exception handler.
func WithLogger(entry *logrus.Entry) RegistryOption {
	return func(r *Registry) {
		if entry != nil {
			r.log = entry
		}
	}
}

// WithExceptionHandler installs the initial exception handler.
func WithExceptionHandler(h ExceptionHandler) RegistryOption {
	return func(r *Registry) {
		r.handler = h
	}
}

// WithExecutor sets the executor used to invoke slots.
func WithExecutor(e *dispatch.Executor) RegistryOption {
	return func(r *Registry) {
		if e != nil {
			r.executor = e
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		senders:       make(map[any]*senderEntry),
		receivers:     make(map[any]map[*Connection]struct{}),
		blocked:       make(map[any]int),
		compactMin:    4,
		compactFactor: 1,
		executor:      dispatch.NewExecutor(),
		log:           logging.WithComponent("signal"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = ReportTo(r.log)
	}
	return r
}

// add appends a connection unless an equal live one exists.
func (r *Registry) add(sig *core, slot, receiver any) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.senders[sig.sender]
	if entry == nil {
		entry = &senderEntry{lists: make(map[*core]*connList)}
		r.senders[sig.sender] = entry
	}
	list := entry.lists[sig]
	if list == nil {
		list = &connList{}
		entry.lists[sig] = list
	}

	for _, c := range list.conns {
		if c.Alive() && c.matches(sig, slot, receiver) {
			return c, false
		}
	}

	r.seq++
	c := newConnection(r.seq, sig, slot, receiver)
	list.conns = append(list.conns, c)

	anchor := c.anchor()
	set := r.receivers[anchor]
	if set == nil {
		set = make(map[*Connection]struct{})
		r.receivers[anchor] = set
	}
	set[c] = struct{}{}

	r.compact(list)

	r.log.WithFields(logrus.Fields{
		"signal":     sig.name,
		"connection": c.id,
	}).Trace("connected")
	return c, true
}

// remove disconnects matching connections on one signal.
//
// With a slot, the first connection equal to (sig, slot, receiver) is
// removed. Without a slot, every connection to receiver is removed, or
// every connection of the signal if receiver is nil too.
func (r *Registry) remove(sig *core, slot, receiver any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.senders[sig.sender]
	if entry == nil {
		return false
	}
	list := entry.lists[sig]
	if list == nil {
		return false
	}

	removed := false
	for _, c := range list.conns {
		if !c.Alive() {
			continue
		}
		if slot != nil {
			if !c.matches(sig, slot, receiver) {
				continue
			}
		} else if receiver != nil && c.receiver != receiver {
			continue
		}
		r.kill(list, c)
		removed = true
		if slot != nil {
			break
		}
	}

	r.tidy(sig, entry, list)
	return removed
}

// kill flags c dead and drops it from the receiver index.
// The caller holds r.mu.
func (r *Registry) kill(list *connList, c *Connection) {
	if !c.dead.CompareAndSwap(false, true) {
		return
	}
	list.dead++

	anchor := c.anchor()
	if set := r.receivers[anchor]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(r.receivers, anchor)
		}
	}
}

// tidy drops empty lists and sender entries, or compacts a list that has
// accumulated enough dead connections. The caller holds r.mu.
func (r *Registry) tidy(sig *core, entry *senderEntry, list *connList) {
	if list.live() > 0 {
		r.compact(list)
		return
	}
	delete(entry.lists, sig)
	if len(entry.lists) == 0 {
		delete(r.senders, sig.sender)
	}
}

// compact physically removes dead connections once the dead count crosses
// the configured threshold. Snapshots taken earlier are copies and are not
// affected. The caller holds r.mu.
func (r *Registry) compact(list *connList) {
	if list.dead < r.compactMin || float64(list.dead) < r.compactFactor*float64(list.live()) {
		return
	}

	kept := list.conns[:0]
	for _, c := range list.conns {
		if c.Alive() {
			kept = append(kept, c)
		}
	}
	clear(list.conns[len(kept):])
	r.log.WithField("dropped", list.dead).Trace("compacted connection list")

	list.conns = kept
	list.dead = 0
	r.compactions.Add(1)
}

// snapshot returns the live connections of sig in emission order.
func (r *Registry) snapshot(sig *core) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.senders[sig.sender]
	if entry == nil {
		return nil
	}
	list := entry.lists[sig]
	if list == nil || list.live() == 0 {
		return nil
	}

	out := make([]*Connection, 0, list.live())
	for _, c := range list.conns {
		if c.Alive() {
			out = append(out, c)
		}
	}
	return out
}

// count returns the number of live connections of sig.
func (r *Registry) count(sig *core) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry := r.senders[sig.sender]; entry != nil {
		if list := entry.lists[sig]; list != nil {
			return list.live()
		}
	}
	return 0
}

// DisconnectSender removes every connection whose signal belongs to sender.
func (r *Registry) DisconnectSender(sender any) {
	if !isComparable(sender) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectSender(sender)
}

func (r *Registry) disconnectSender(sender any) {
	entry := r.senders[sender]
	if entry == nil {
		return
	}
	for _, list := range entry.lists {
		for _, c := range list.conns {
			r.kill(list, c)
		}
	}
	delete(r.senders, sender)
}

// DisconnectReceiver removes every connection anchored on receiver, across
// all senders. A slot connected without a receiver is its own anchor.
func (r *Registry) DisconnectReceiver(receiver any) {
	if !isComparable(receiver) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectReceiver(receiver, nil)
}

// DisconnectBetween removes the connections from sender's signals to receiver.
func (r *Registry) DisconnectBetween(sender, receiver any) {
	if !isComparable(sender) || !isComparable(receiver) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectReceiver(receiver, func(c *Connection) bool {
		return c.sender == sender
	})
}

func (r *Registry) disconnectReceiver(receiver any, filter func(*Connection) bool) {
	set := r.receivers[receiver]
	for c := range set {
		if filter != nil && !filter(c) {
			continue
		}
		entry := r.senders[c.sender]
		if entry == nil {
			continue
		}
		list := entry.lists[c.signal]
		if list == nil {
			continue
		}
		r.kill(list, c)
		r.tidy(c.signal, entry, list)
	}
}

// DisconnectAll removes every connection in which object is the sender or
// the receiver.
func (r *Registry) DisconnectAll(object any) {
	if !isComparable(object) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnectSender(object)
	r.disconnectReceiver(object, nil)
}

// ClearData is DisconnectAll under the name owners use when disposing of
// an object.
func (r *Registry) ClearData(object any) {
	r.DisconnectAll(object)
}

// BlockAll suppresses every signal of sender while body runs. Blocks nest;
// emission resumes when the outermost block exits, including by panic.
func (r *Registry) BlockAll(sender any, body func() error) error {
	mustComparable(sender)

	r.mu.Lock()
	r.blocked[sender]++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.blocked[sender]--; r.blocked[sender] <= 0 {
			delete(r.blocked, sender)
		}
		r.mu.Unlock()
	}()

	return body()
}

// senderBlocked reports whether BlockAll is active for sender.
func (r *Registry) senderBlocked(sender any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.blocked[sender] > 0
}

// deliver invokes one connection and routes any failure to the exception
// handler.
func (r *Registry) deliver(c *Connection, call dispatch.Call) {
	result := r.executor.Execute(call)

	switch {
	case result.Panicked:
		r.report(&PanicError{
			Signal:       c.signal.name,
			Slot:         c.SlotName(),
			ConnectionID: c.id,
			Sender:       c.sender,
			Receiver:     c.receiver,
			Value:        result.PanicValue,
			Stack:        string(result.PanicStack),
		})
	case result.Error != nil:
		r.report(&SlotError{
			Signal:       c.signal.name,
			Slot:         c.SlotName(),
			ConnectionID: c.id,
			Sender:       c.sender,
			Receiver:     c.receiver,
			Err:          result.Error,
		})
	}
}

// Connections returns the live connections of sender in insertion order.
func (r *Registry) Connections(sender any) []*Connection {
	if !isComparable(sender) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.senders[sender]
	if entry == nil {
		return nil
	}
	var out []*Connection
	for _, list := range entry.lists {
		for _, c := range list.conns {
			if c.Alive() {
				out = append(out, c)
			}
		}
	}
	sortBySeq(out)
	return out
}

// ReceiverConnections returns the live connections anchored on receiver in
// insertion order.
func (r *Registry) ReceiverConnections(receiver any) []*Connection {
	if !isComparable(receiver) {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.receivers[receiver]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sortBySeq(out)
	return out
}

// Count returns the total number of live connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, entry := range r.senders {
		for _, list := range entry.lists {
			n += list.live()
		}
	}
	return n
}

// Stats contains registry statistics.
type Stats struct {
	// Senders is the number of senders with at least one live connection.
	Senders int

	// Receivers is the number of distinct receiver anchors.
	Receivers int

	// Connections is the number of live connections.
	Connections int

	// DeadConnections is the number of disconnected entries awaiting compaction.
	DeadConnections int

	// BlockedSenders is the number of senders inside BlockAll.
	BlockedSenders int

	// Emissions is the number of emissions that reached the slot pass.
	Emissions uint64

	// BlockedEmissions is the number of emissions suppressed by blocking.
	BlockedEmissions uint64

	// SlotCalls is the number of slot invocations.
	SlotCalls uint64

	// SlotErrors is the number of slots that returned an error.
	SlotErrors uint64

	// SlotPanics is the number of slots that panicked.
	SlotPanics uint64

	// Compactions is the number of list compactions performed.
	Compactions uint64
}

// Stats returns current registry statistics.
func (r *Registry) Stats() Stats {
	exec := r.executor.Stats()

	r.mu.Lock()
	defer r.mu.Unlock()

	stats := Stats{
		Senders:          len(r.senders),
		Receivers:        len(r.receivers),
		BlockedSenders:   len(r.blocked),
		Emissions:        r.emissions.Load(),
		BlockedEmissions: r.blockedEmissions.Load(),
		SlotCalls:        exec.Executed,
		SlotErrors:       exec.Failed,
		SlotPanics:       exec.Panicked,
		Compactions:      r.compactions.Load(),
	}
	for _, entry := range r.senders {
		for _, list := range entry.lists {
			stats.Connections += list.live()
			stats.DeadConnections += list.dead
		}
	}
	return stats
}

func sortBySeq(conns []*Connection) {
	slices.SortFunc(conns, func(a, b *Connection) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
}

// isComparable reports whether v can be used as a map key. The dynamic
// value is checked, so a struct whose interface field holds a slice is
// rejected even though its type is comparable.
func isComparable(v any) bool {
	return v != nil && reflect.ValueOf(v).Comparable()
}

// mustComparable panics if v cannot serve as an identity key.
func mustComparable(v any) {
	if v == nil {
		panic(ErrNilSender)
	}
	if !reflect.ValueOf(v).Comparable() {
		panic(ErrNotComparable)
	}
}
