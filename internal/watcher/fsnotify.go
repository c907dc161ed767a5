package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/dshills/slotwire/internal/logging"
	"github.com/dshills/slotwire/internal/signal"
)

// Watcher monitors file system changes and emits them as signals.
type Watcher struct {
	// Changed carries every change that survives filtering.
	Changed *signal.Stream[Event]

	// Watched is emitted with each directory or file added to the watch set.
	Watched *signal.Signal[string]

	// Failed is emitted with errors from the underlying watcher.
	Failed *signal.Signal[error]

	mu       sync.RWMutex
	fsw      *fsnotify.Watcher
	config   Config
	registry *signal.Registry
	ignore   *IgnorePatterns
	paths    map[string]bool
	log      *logrus.Entry

	// Debounce state, owned by the loop goroutine except for timers.
	pending map[string]*pendingEvent
	fire    chan string

	// Stats
	startTime   time.Time
	totalEvents atomic.Int64
	totalErrors atomic.Int64
	lastError   error

	// Lifecycle
	closed  bool
	closeCh chan struct{}
	done    sync.WaitGroup
}

// pendingEvent tracks a debounced event.
type pendingEvent struct {
	event Event
	timer *time.Timer
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = signal.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fsw:       fsw,
		config:    config,
		registry:  config.Registry,
		ignore:    NewIgnorePatterns(),
		paths:     make(map[string]bool),
		log:       logging.WithComponent("watcher"),
		pending:   make(map[string]*pendingEvent),
		fire:      make(chan string, 64),
		startTime: time.Now(),
		closeCh:   make(chan struct{}),
	}
	for _, pattern := range config.IgnorePatterns {
		w.ignore.AddPattern(pattern)
	}

	reg := signal.WithRegistry(config.Registry)
	w.Changed = signal.NewStream[Event](w, reg, signal.WithName("watcher.changed"), signal.WithCapacity(config.Capacity))
	w.Watched = signal.New[string](w, reg, signal.WithName("watcher.watched"))
	w.Failed = signal.New[error](w, reg, signal.WithName("watcher.failed"))

	w.done.Add(1)
	go w.loop()

	return w, nil
}

// String identifies the watcher to script slots and logs.
func (w *Watcher) String() string {
	return "watcher"
}

// Watch starts watching a path. Directories are watched with their
// immediate children.
func (w *Watcher) Watch(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrPathNotExist
		}
		return err
	}

	if err := w.add(absPath); err != nil {
		return err
	}
	w.Watched.Emit(absPath)
	return nil
}

func (w *Watcher) add(absPath string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.paths[absPath] {
		return ErrAlreadyWatching
	}
	if w.config.MaxWatches > 0 && len(w.paths) >= w.config.MaxWatches {
		return ErrWatchLimit
	}
	if err := w.fsw.Add(absPath); err != nil {
		return err
	}
	w.paths[absPath] = true
	return nil
}

// WatchRecursive watches a directory and all subdirectories that are not
// ignored. A file path is watched on its own.
func (w *Watcher) WatchRecursive(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrPathNotExist
		}
		return err
	}
	if !info.IsDir() {
		return w.Watch(absPath)
	}

	return filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != absPath && w.shouldIgnore(p, true) {
			return filepath.SkipDir
		}
		if err := w.Watch(p); err != nil {
			if errors.Is(err, ErrWatcherClosed) || errors.Is(err, ErrWatchLimit) {
				return err
			}
			if !errors.Is(err, ErrAlreadyWatching) {
				w.recordError(err)
			}
		}
		return nil
	})
}

// Unwatch stops watching a path.
func (w *Watcher) Unwatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if !w.paths[absPath] {
		return ErrNotWatching
	}
	if err := w.fsw.Remove(absPath); err != nil {
		return err
	}
	delete(w.paths, absPath)
	return nil
}

// IsWatching returns true if the path is being watched.
func (w *Watcher) IsWatching(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.paths[absPath]
}

// WatchedPaths returns all watched paths, sorted.
func (w *Watcher) WatchedPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.paths))
	for p := range w.paths {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Quiet runs body with every signal of the watcher blocked. Changes
// observed meanwhile are discarded rather than queued.
func (w *Watcher) Quiet(body func() error) error {
	return w.registry.BlockAll(w, body)
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Stats{
		WatchedPaths:  len(w.paths),
		PendingEvents: len(w.pending),
		TotalEvents:   w.totalEvents.Load(),
		Errors:        w.totalErrors.Load(),
		LastError:     w.lastError,
		StartTime:     w.startTime,
	}
}

// Close stops the watcher, ends the current iteration of Changed and
// drops every connection the watcher takes part in.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.done.Wait()
	err := w.fsw.Close()

	w.Changed.Stop()
	w.registry.ClearData(w)
	return err
}

// loop turns fsnotify events into emissions.
func (w *Watcher) loop() {
	defer w.done.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case path := <-w.fire:
			w.flush(path)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.Failed.Emit(err)
		}
	}
}

// handle converts an fsnotify event and emits or debounces it.
func (w *Watcher) handle(ev fsnotify.Event) {
	op := convertOp(ev.Op)
	if op == 0 {
		return
	}

	isDir := false
	if op.Has(OpCreate) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			isDir = true
		}
	}
	if w.shouldIgnore(ev.Name, isDir) {
		return
	}

	event := Event{Path: ev.Name, Op: op, Time: time.Now()}
	if w.config.EventFilter != nil && !w.config.EventFilter(event) {
		return
	}

	if w.config.Debounce > 0 {
		w.debounce(event)
	} else {
		w.emit(event)
	}

	// New directories under a watched one are picked up automatically.
	if isDir {
		if err := w.Watch(ev.Name); err != nil && !errors.Is(err, ErrAlreadyWatching) {
			w.recordError(err)
		}
	}
}

func (w *Watcher) emit(event Event) {
	w.totalEvents.Add(1)
	w.log.WithFields(logrus.Fields{
		"path": event.Path,
		"op":   event.Op.String(),
	}).Debug("file changed")
	w.Changed.Emit(event)
}

// debounce merges event into the pending event for its path and restarts
// the path's timer.
func (w *Watcher) debounce(event Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[event.Path]; ok {
		p.event.Op |= event.Op
		p.event.Time = event.Time
		p.timer.Reset(w.config.Debounce)
		return
	}

	path := event.Path
	w.pending[path] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(w.config.Debounce, func() {
			select {
			case w.fire <- path:
			case <-w.closeCh:
			}
		}),
	}
}

// flush emits the pending event for path, if any.
func (w *Watcher) flush(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if ok {
		w.emit(p.event)
	}
}

// convertOp converts fsnotify.Op to Op.
func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	if fsOp.Has(fsnotify.Chmod) {
		op |= OpChmod
	}
	return op
}

// shouldIgnore checks hidden names and ignore patterns.
func (w *Watcher) shouldIgnore(path string, isDir bool) bool {
	if w.config.IgnoreHidden {
		base := filepath.Base(path)
		if len(base) > 1 && base[0] == '.' {
			return true
		}
	}
	return w.ignore.Match(path, isDir)
}

// recordError records an error in stats.
func (w *Watcher) recordError(err error) {
	w.totalErrors.Add(1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
	w.log.WithError(err).Warn("watch error")
}
