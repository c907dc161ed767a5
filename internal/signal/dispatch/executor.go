package dispatch

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// Call is a bound slot invocation.
type Call func() error

// Executor invokes calls with panic recovery and timing.
// It is safe for concurrent use.
type Executor struct {
	captureStack bool

	// Stats
	executed    atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	totalTimeNs atomic.Int64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithStackCapture controls whether stack traces are captured for panics.
// Capture is enabled by default.
func WithStackCapture(enabled bool) ExecutorOption {
	return func(e *Executor) {
		e.captureStack = enabled
	}
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{captureStack: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs call and returns the result.
// A panic inside call is recovered and reported in the Result.
func (e *Executor) Execute(call Call) (result Result) {
	start := time.Now()
	e.executed.Add(1)

	defer func() {
		result.Duration = time.Since(start)
		e.totalTimeNs.Add(result.Duration.Nanoseconds())

		if r := recover(); r != nil {
			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			if e.captureStack {
				result.PanicStack = debug.Stack()
			}
			e.panicked.Add(1)
		}
	}()

	if err := call(); err != nil {
		result.Error = err
		e.failed.Add(1)
		return result
	}

	result.Success = true
	return result
}

// Stats contains executor statistics.
type Stats struct {
	// Executed is the total number of calls run.
	Executed uint64

	// Failed is the number of calls that returned errors.
	Failed uint64

	// Panicked is the number of calls that panicked.
	Panicked uint64

	// TotalDuration is the cumulative time spent in calls.
	TotalDuration time.Duration

	// AvgDuration is the average call duration.
	AvgDuration time.Duration
}

// Stats returns execution statistics.
// Values are read without a lock and may be slightly inconsistent under
// concurrent use.
func (e *Executor) Stats() Stats {
	executed := e.executed.Load()
	totalNs := e.totalTimeNs.Load()

	var avgNs int64
	if executed > 0 {
		avgNs = totalNs / int64(executed)
	}

	return Stats{
		Executed:      executed,
		Failed:        e.failed.Load(),
		Panicked:      e.panicked.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// ResetStats resets all statistics to zero.
func (e *Executor) ResetStats() {
	e.executed.Store(0)
	e.failed.Store(0)
	e.panicked.Store(0)
	e.totalTimeNs.Store(0)
}
