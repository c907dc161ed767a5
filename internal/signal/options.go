package signal

// Option configures a Signal or Stream.
type Option func(*options)

type options struct {
	registry *Registry
	name     string
	capacity int
}

func buildOptions(opts []Option) options {
	o := options{registry: Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithRegistry attaches the signal to r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithName sets the diagnostic name reported in logs and slot errors.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithCapacity bounds a Stream's buffer. When full, the oldest pending
// value is dropped. Zero, the default, means unbounded. Plain signals
// ignore it.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.capacity = n
		}
	}
}
