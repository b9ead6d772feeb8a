package logging

import (
	"sort"
	"sync"
)

// Factory builds the logger for a normalized category. Deployments that
// need custom loggers pass their own to NewRegistry with WithFactory.
type Factory func(sink Sink, category string, isApp bool) *Logger

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFactory replaces NewLogger as the logger constructor.
func WithFactory(f Factory) RegistryOption {
	return func(r *Registry) {
		if f != nil {
			r.factory = f
		}
	}
}

// Registry caches one Logger per category. Concurrent callers asking for
// the same category always get the same Logger.
type Registry struct {
	host    Host
	sink    Sink
	factory Factory

	mu      sync.Mutex
	loggers map[string]*Logger // normalized category -> logger
}

// NewRegistry returns an empty Registry writing to sink.
func NewRegistry(sink Sink, host Host, opts ...RegistryOption) *Registry {
	r := &Registry{
		host:    host,
		sink:    sink,
		factory: NewLogger,
		loggers: make(map[string]*Logger),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Host returns the host description used to classify categories.
func (r *Registry) Host() Host {
	return r.host
}

// Logger returns the logger for category, creating it on first use.
func (r *Registry) Logger(category string) *Logger {
	category, isApp := r.host.Classify(category)

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[category]; ok {
		return l
	}
	l := r.factory(r.sink, category, isApp)
	r.loggers[category] = l
	return l
}

// Root returns the application's own logger.
func (r *Registry) Root() *Logger {
	return r.Logger("")
}

// Categories returns the categories with a cached logger, sorted.
func (r *Registry) Categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.loggers))
	for c := range r.loggers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
