package signal

import (
	"errors"

	"github.com/sirupsen/logrus"
)

// ExceptionHandler receives every failure raised by a slot during
// emission: a *SlotError for returned errors, a *PanicError for panics.
// It runs on the emitting goroutine, between two slot invocations.
type ExceptionHandler func(err error)

// ReportTo returns a handler that logs slot failures to entry and lets
// emission continue. It is the default for every registry.
func ReportTo(entry *logrus.Entry) ExceptionHandler {
	return func(err error) {
		fields := logrus.Fields{}

		var slotErr *SlotError
		var panicErr *PanicError
		switch {
		case errors.As(err, &panicErr):
			fields["signal"] = panicErr.Signal
			fields["connection"] = panicErr.ConnectionID
			if panicErr.Slot != "" {
				fields["slot"] = panicErr.Slot
			}
			if panicErr.Stack != "" {
				fields["stack"] = panicErr.Stack
			}
		case errors.As(err, &slotErr):
			fields["signal"] = slotErr.Signal
			fields["connection"] = slotErr.ConnectionID
			if slotErr.Slot != "" {
				fields["slot"] = slotErr.Slot
			}
		}

		entry.WithFields(fields).WithError(err).Error("slot failed")
	}
}

// ExceptionHandler returns the installed exception handler.
func (r *Registry) ExceptionHandler() ExceptionHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

// SetExceptionHandler installs h and returns the previous handler so the
// caller can restore it. A nil h reinstalls the default reporter.
func (r *Registry) SetExceptionHandler(h ExceptionHandler) ExceptionHandler {
	if h == nil {
		h = ReportTo(r.log)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.handler
	r.handler = h
	return prev
}

// report hands err to the exception handler. A panicking handler is
// recovered and logged so that Emit always returns normally.
func (r *Registry) report(err error) {
	h := r.ExceptionHandler()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithError(err).WithField("panic", rec).Error("exception handler panicked")
		}
	}()

	h(err)
}
