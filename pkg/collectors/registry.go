package collectors

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultTimeout bounds a single probe when the caller does not set one.
const DefaultTimeout = 5 * time.Second

// Registry manages the producers behind the configured widgets, keyed by
// widget name. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	clock     clock.PassiveClock
	producers map[string]Producer
	statuses  map[string]*Status
}

// NewRegistry returns an empty registry ready for producer registration.
func NewRegistry() *Registry {
	return NewRegistryWithClock(clock.RealClock{})
}

// NewRegistryWithClock returns an empty registry that timestamps runs with
// the given clock.
func NewRegistryWithClock(c clock.PassiveClock) *Registry {
	return &Registry{
		clock:     c,
		producers: make(map[string]Producer),
		statuses:  make(map[string]*Status),
	}
}

// Register adds a producer under the given widget name. It returns an error
// if the name is already taken.
func (r *Registry) Register(name string, p Producer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.producers[name]; exists {
		return fmt.Errorf("widget %q already registered", name)
	}

	r.producers[name] = p
	r.statuses[name] = &Status{
		Name:     name,
		Producer: p.Name(),
		Healthy:  true,
	}
	return nil
}

// Unregister removes a producer by name. It is a no-op if the name is not
// found.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.producers, name)
	delete(r.statuses, name)
}

// Get returns the producer registered under name.
func (r *Registry) Get(name string) (Producer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.producers[name]
	return p, ok
}

// List returns a sorted slice of all registered widget names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.producers))
	for name := range r.producers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns a copy of the runtime status for the named widget.
func (r *Registry) Status(name string) (Status, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.statuses[name]
	if !ok {
		return Status{}, false
	}
	return *s, true
}

// AllStatus returns a copy of all statuses, sorted by name.
func (r *Registry) AllStatus() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Status, 0, len(r.statuses))
	for _, s := range r.statuses {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Bind returns the zero-argument function a widget cache recomputes for the
// named producer. Each call runs the producer with the given timeout and
// records the outcome in the widget's status.
func (r *Registry) Bind(name string, timeout time.Duration) func() (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return func() (string, error) {
		p, ok := r.Get(name)
		if !ok {
			return "", fmt.Errorf("widget %q not registered", name)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := r.clock.Now()
		text, err := p.Produce(ctx)
		r.record(name, start, r.clock.Since(start), err)
		return text, err
	}
}

// record updates the status entry for the named widget.
func (r *Registry) record(name string, start time.Time, latency time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.statuses[name]
	if !ok {
		return
	}
	s.RunCount++
	s.LastRun = start
	s.LastLatency = latency
	if err != nil {
		s.ErrorCount++
		s.Healthy = false
		s.LastError = err.Error()
		return
	}
	s.Healthy = true
	s.LastError = ""
}
