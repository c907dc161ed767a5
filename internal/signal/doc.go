// Package signal implements typed, in-process signals and slots.
//
// A Signal is an emission point owned by a sender object. Receivers attach
// callbacks (slots) to it; Emit calls them synchronously, in the order they
// were connected.
//
// # Registry
//
// Connections do not live inside the Signal. A Registry owns all of them,
// indexed both by sender and by receiver, so that every connection of an
// object can be torn down in one call:
//
//	reg.DisconnectSender(doc)         // everything doc emits
//	reg.DisconnectReceiver(view)      // everything view listens to
//	reg.DisconnectBetween(doc, view)  // just doc -> view
//	reg.DisconnectAll(obj)            // obj as sender or receiver
//
// The registry never keeps objects alive on their behalf and never tears
// them down automatically. An owner must call DisconnectAll (or its alias
// ClearData) before discarding an object that was used as a sender or
// receiver.
//
// Signals created without WithRegistry use the process-wide Default
// registry; the package-level functions operate on it.
//
// # Emission
//
// Emit works on a snapshot of the connections live when it starts:
//
//   - a slot connected during emission first runs on the next Emit
//   - a slot disconnected during emission is skipped if not yet reached
//   - a slot that returns an error or panics is reported to the registry's
//     ExceptionHandler and the remaining slots still run
//
// Emit always returns normally.
//
// Disconnected connections are flagged dead and dropped from their list
// lazily, once enough of them accumulate (see WithCompaction).
//
// # Blocking
//
// Signal.Block and Registry.BlockAll suppress emission while a function
// runs. Blocks nest and are released on every exit path:
//
//	_ = doc.Renamed.Block(func() error {
//	    doc.Rename("x") // no slots run
//	    return nil
//	})
//
// Suppressed emissions are dropped, not queued.
//
// # Streams
//
// A Stream is a Signal that also buffers its emissions for a pull-based
// consumer:
//
//	for key := range keys.All(ctx) {
//	    ...
//	}
//
// Stop ends the current iteration. A later iteration picks up values that
// were buffered but never pulled.
package signal
