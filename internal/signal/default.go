package signal

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by signals created
// without WithRegistry.
func Default() *Registry {
	return defaultRegistry
}

// DisconnectBetween removes the connections from sender's signals to
// receiver in the default registry.
func DisconnectBetween(sender, receiver any) {
	defaultRegistry.DisconnectBetween(sender, receiver)
}

// DisconnectSender removes every connection of sender's signals in the
// default registry.
func DisconnectSender(sender any) {
	defaultRegistry.DisconnectSender(sender)
}

// DisconnectReceiver removes every connection to receiver in the default
// registry.
func DisconnectReceiver(receiver any) {
	defaultRegistry.DisconnectReceiver(receiver)
}

// DisconnectAll removes every connection in which object is sender or
// receiver in the default registry.
func DisconnectAll(object any) {
	defaultRegistry.DisconnectAll(object)
}

// ClearData is DisconnectAll on the default registry.
func ClearData(object any) {
	defaultRegistry.ClearData(object)
}

// BlockAll suppresses all of sender's signals in the default registry
// while body runs.
func BlockAll(sender any, body func() error) error {
	return defaultRegistry.BlockAll(sender, body)
}

// CurrentExceptionHandler returns the default registry's exception handler.
func CurrentExceptionHandler() ExceptionHandler {
	return defaultRegistry.ExceptionHandler()
}

// SetExceptionHandler installs h on the default registry and returns the
// previous handler.
func SetExceptionHandler(h ExceptionHandler) ExceptionHandler {
	return defaultRegistry.SetExceptionHandler(h)
}
