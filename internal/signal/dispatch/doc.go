// Package dispatch runs slot invocations for the signal package.
//
// An Executor calls a single slot, recovers from panics, and reports the
// outcome as a Result. It never decides what to do with a failure; the
// caller routes failed Results to its exception handler.
package dispatch
