// Package eventbus is an in-process, synchronous publish/subscribe channel
// for plugin logic. It carries no host traffic.
package eventbus

import "sync"

// Listener receives the data passed to Emit.
type Listener func(data any)

// Bus maps channel names to ordered listener lists.
//
// Emit runs listeners on the caller's goroutine in subscription order.
// A panicking listener propagates to the caller and the remaining
// listeners for that emit do not run.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{listeners: make(map[string][]Listener)}
}

// Subscribe appends fn to the listeners for name.
func (b *Bus) Subscribe(name string, fn Listener) {
	b.mu.Lock()
	b.listeners[name] = append(b.listeners[name], fn)
	b.mu.Unlock()
}

// Unsubscribe removes every listener for name.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	delete(b.listeners, name)
	b.mu.Unlock()
}

// Emit calls each listener for name with data. Unknown names are a no-op.
func (b *Bus) Emit(name string, data any) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[name]...)
	b.mu.RUnlock()

	for _, fn := range listeners {
		fn(data)
	}
}

// Count returns the number of listeners for name.
func (b *Bus) Count(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[name])
}
