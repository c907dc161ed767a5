// Package watcher publishes file system changes as signals.
//
// A Watcher is the sender of three signals: Changed, a Stream of change
// events that can be consumed by pulling or by connecting slots; Watched,
// emitted with each directory added to the watch set; and Failed, emitted
// with errors reported by the underlying fsnotify watcher.
//
// Changed and Failed are emitted from the watcher's own goroutine, so their
// slots never run concurrently with each other. Watched is emitted from
// whichever goroutine added the path.
package watcher

import (
	"errors"
	"strings"
	"time"

	"github.com/dshills/slotwire/internal/signal"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
	ErrWatchLimit      = errors.New("maximum watch limit reached")
)

// Op represents the type of file system operation. Coalesced events may
// carry several bits.
type Op uint32

const (
	// OpCreate indicates a file or directory was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
	// OpChmod indicates file permissions were changed.
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the operation names joined by "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event represents a file system change.
type Event struct {
	// Path is the absolute path of the affected file or directory.
	Path string `json:"path"`

	// Op is the operation that occurred.
	Op Op `json:"op"`

	// Time is when the (last coalesced) change was observed.
	Time time.Time `json:"time"`
}

// Stats provides watcher status information.
type Stats struct {
	// WatchedPaths is the number of paths being watched.
	WatchedPaths int

	// PendingEvents is the number of events waiting for their debounce
	// window to close.
	PendingEvents int

	// TotalEvents is the number of events emitted on Changed.
	TotalEvents int64

	// Errors is the total number of errors encountered.
	Errors int64

	// LastError is the most recent error, if any.
	LastError error

	// StartTime is when the watcher was started.
	StartTime time.Time
}

// EventFilter reports whether an event should be emitted.
type EventFilter func(event Event) bool

// Config holds watcher configuration options.
type Config struct {
	// Registry holds the watcher's connections. Default: signal.Default().
	Registry *signal.Registry

	// Capacity bounds the Changed stream buffer. 0 means unbounded.
	Capacity int

	// Debounce coalesces changes to the same path within the window.
	// 0 emits every change immediately.
	Debounce time.Duration

	// IgnorePatterns are gitignore-style patterns for paths to ignore.
	IgnorePatterns []string

	// IgnoreHidden ignores files and directories starting with ".".
	IgnoreHidden bool

	// MaxWatches is the maximum number of paths to watch. 0 is unlimited.
	MaxWatches int

	// EventFilter is an optional filter applied before emission.
	EventFilter EventFilter
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: 1024,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithRegistry sets the registry for the watcher's signals.
func WithRegistry(r *signal.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithCapacity sets the Changed stream capacity.
func WithCapacity(n int) Option {
	return func(c *Config) {
		c.Capacity = n
	}
}

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Debounce = d
	}
}

// WithIgnorePatterns sets the ignore patterns.
func WithIgnorePatterns(patterns []string) Option {
	return func(c *Config) {
		c.IgnorePatterns = patterns
	}
}

// WithIgnoreHidden enables ignoring hidden files.
func WithIgnoreHidden(ignore bool) Option {
	return func(c *Config) {
		c.IgnoreHidden = ignore
	}
}

// WithMaxWatches sets the maximum number of watches.
func WithMaxWatches(n int) Option {
	return func(c *Config) {
		c.MaxWatches = n
	}
}

// WithEventFilter sets the event filter.
func WithEventFilter(filter EventFilter) Option {
	return func(c *Config) {
		c.EventFilter = filter
	}
}
