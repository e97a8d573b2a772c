package collectors

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockProducer implements Producer for testing. Its output is configurable
// and it tracks how many times Produce has been called.
type MockProducer struct {
	name string

	mu   sync.RWMutex
	text string
	err  error

	callCount atomic.Int64

	// ProduceFunc, if set, overrides the default Produce behavior.
	// This allows tests to inject dynamic behavior (e.g., return different
	// text on each call, or block until a signal).
	ProduceFunc func(ctx context.Context) (string, error)
}

// MockOption configures a MockProducer.
type MockOption func(*MockProducer)

// WithText sets the text returned by Produce.
func WithText(text string) MockOption {
	return func(m *MockProducer) { m.text = text }
}

// WithError sets the error returned by Produce.
func WithError(err error) MockOption {
	return func(m *MockProducer) { m.err = err }
}

// WithProduceFunc sets a custom function for Produce.
func WithProduceFunc(fn func(ctx context.Context) (string, error)) MockOption {
	return func(m *MockProducer) { m.ProduceFunc = fn }
}

// NewMockProducer creates a mock producer with the given name and options.
func NewMockProducer(name string, opts ...MockOption) *MockProducer {
	m := &MockProducer{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the producer name.
func (m *MockProducer) Name() string { return m.name }

// SetText updates the returned text (thread-safe).
func (m *MockProducer) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

// SetError updates the returned error (thread-safe).
func (m *MockProducer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Produce increments the call counter and returns the configured text and
// error, or delegates to ProduceFunc if set.
func (m *MockProducer) Produce(ctx context.Context) (string, error) {
	m.callCount.Add(1)

	if m.ProduceFunc != nil {
		return m.ProduceFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.text, m.err
}

// CallCount returns how many times Produce has been called.
func (m *MockProducer) CallCount() int64 {
	return m.callCount.Load()
}
