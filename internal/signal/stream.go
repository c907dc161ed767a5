package signal

import (
	"context"
	"iter"
	"sync"
)

// Stream is a Signal whose emissions are also buffered for a pull-based
// consumer.
//
// A Stream starts out capturing: values emitted before the first
// iteration wait in the buffer. Iterate starts a new iteration, which
// supersedes any earlier one. Stop ends the current iteration; values
// emitted afterwards are dropped until the next Iterate, while values that
// were buffered but not yet pulled are kept for it.
//
// Only one iteration is active at a time and an Iterator must be consumed
// by a single goroutine.
type Stream[T any] struct {
	*Signal[T]

	mu       sync.Mutex
	queue    []T
	waiter   chan struct{}
	gen      uint64
	active   bool
	stopped  bool
	capacity int

	// Stats
	delivered  uint64
	dropped    uint64
	iterations uint64
}

// NewStream creates a stream owned by sender.
//
// The buffer is unbounded unless WithCapacity is given. A stream that is
// never iterated keeps every emitted value until Stop, so streams used
// mainly through their slots should set a capacity.
func NewStream[T any](sender any, opts ...Option) *Stream[T] {
	o := buildOptions(opts)
	s := &Stream[T]{
		Signal:   newSignal[T](sender, o),
		capacity: o.capacity,
	}
	s.Signal.tap = s.push
	return s
}

// push buffers v and wakes a parked consumer.
func (s *Stream[T]) push(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.dropped++
		return
	}
	if s.capacity > 0 && len(s.queue) >= s.capacity {
		var zero T
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.dropped++
	}
	s.queue = append(s.queue, v)
	s.wakeLocked()
}

// wakeLocked resumes the parked consumer, if any. The caller holds s.mu.
func (s *Stream[T]) wakeLocked() {
	if s.waiter != nil {
		close(s.waiter)
		s.waiter = nil
	}
}

// Iterate starts a new iteration over the stream. Any earlier iteration
// is terminated and its parked consumer resumes with ErrStreamStopped.
func (s *Stream[T]) Iterate() *Iterator[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.active = true
	s.stopped = false
	s.iterations++
	s.wakeLocked()

	return &Iterator[T]{stream: s, gen: s.gen}
}

// Stop terminates the current iteration. A consumer waiting in Next
// resumes with ErrStreamStopped. Emissions are dropped until the next
// Iterate.
func (s *Stream[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.active = false
	s.stopped = true
	s.wakeLocked()
}

// All returns a sequence over a fresh iteration, for use with range. The
// sequence ends on Stop, on a newer iteration, or when ctx is done.
func (s *Stream[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		it := s.Iterate()
		defer it.Close()

		for {
			v, err := it.Next(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Pending returns the number of buffered values.
func (s *Stream[T]) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// StreamStats contains stream statistics.
type StreamStats struct {
	// Pending is the number of buffered values.
	Pending int

	// Delivered is the number of values pulled by consumers.
	Delivered uint64

	// Dropped is the number of values discarded while stopped or on overflow.
	Dropped uint64

	// Iterations is the number of iterations started.
	Iterations uint64

	// Active is true while an iteration is running.
	Active bool

	// Stopped is true between Stop and the next Iterate.
	Stopped bool
}

// Stats returns current stream statistics.
func (s *Stream[T]) Stats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StreamStats{
		Pending:    len(s.queue),
		Delivered:  s.delivered,
		Dropped:    s.dropped,
		Iterations: s.iterations,
		Active:     s.active,
		Stopped:    s.stopped,
	}
}

// Iterator is one iteration over a Stream.
type Iterator[T any] struct {
	stream *Stream[T]
	gen    uint64
}

// Next returns the next buffered value, waiting for one if the buffer is
// empty. It returns ErrStreamStopped once the iteration has ended and
// ctx.Err() if ctx is done first.
func (it *Iterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	s := it.stream

	for {
		s.mu.Lock()
		if it.gen != s.gen {
			s.mu.Unlock()
			return zero, ErrStreamStopped
		}
		if len(s.queue) > 0 {
			v := s.queue[0]
			s.queue[0] = zero
			s.queue = s.queue[1:]
			s.delivered++
			s.mu.Unlock()
			return v, nil
		}
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return zero, err
		}

		wake := make(chan struct{})
		s.waiter = wake
		s.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			s.mu.Lock()
			if s.waiter == wake {
				s.waiter = nil
			}
			s.mu.Unlock()
			return zero, ctx.Err()
		}
	}
}

// Close ends the iteration from the consumer side. Buffered values stay in
// the stream and capture continues for the next iteration.
func (it *Iterator[T]) Close() {
	s := it.stream
	s.mu.Lock()
	defer s.mu.Unlock()

	if it.gen != s.gen {
		return
	}
	s.gen++
	s.active = false
	s.wakeLocked()
}
