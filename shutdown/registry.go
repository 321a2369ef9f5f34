package shutdown

import (
	"context"
	"sort"
	"sync"

	"wallgen/core"
)

type hookEntry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs first
}

// Registry holds named cleanup hooks and runs them in priority order
// during shutdown. Registration after Run is a no-op.
type Registry struct {
	mu     sync.Mutex
	hooks  []hookEntry
	closed bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup hook. Lower priorities run earlier; hooks with
// equal priority run in registration order.
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.hooks = append(r.hooks, hookEntry{name: name, fn: fn, priority: priority})
}

// Run executes every hook in priority order, continuing past failures,
// and returns the collected errors. The registry is closed afterwards;
// a second Run returns nil.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	hooks := r.sortedLocked()
	r.mu.Unlock()

	var errs []error
	for _, hook := range hooks {
		if err := hook.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Names lists the registered hooks in execution order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	hooks := r.sortedLocked()
	r.mu.Unlock()

	names := make([]string, len(hooks))
	for i, hook := range hooks {
		names[i] = hook.name
	}
	return names
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

func (r *Registry) sortedLocked() []hookEntry {
	sorted := make([]hookEntry, len(r.hooks))
	copy(sorted, r.hooks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted
}
