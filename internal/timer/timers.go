package timer

import (
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by Timers.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Scheduler is the command side of a Service.
type Scheduler interface {
	Set(id string, delay time.Duration)
	Clear(id string)
}

// Timers is the owner-side table of id → callback.
//
// Callbacks run wherever Fire is called; the plugin runtime calls it from
// its logic loop so callbacks never race dispatched handlers.
type Timers struct {
	scheduler Scheduler
	mu        sync.Mutex
	callbacks map[string]func()
	logger    Logger
}

// NewTimers creates an owner table posting to scheduler.
func NewTimers(scheduler Scheduler) *Timers {
	return &Timers{
		scheduler: scheduler,
		callbacks: make(map[string]func()),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger used for callback panics.
func (t *Timers) SetLogger(logger Logger) {
	t.logger = logger
}

// SetInterval registers fn to run every delay under id.
// Re-registering an id replaces only the callback; the running interval
// keeps its period.
func (t *Timers) SetInterval(id string, delay time.Duration, fn func()) {
	t.mu.Lock()
	t.callbacks[id] = fn
	t.mu.Unlock()

	t.scheduler.Set(id, delay)
	t.logger.Debug("interval set", "id", id, "delay", delay)
}

// ClearInterval removes the callback for id and stops its interval.
func (t *Timers) ClearInterval(id string) {
	t.mu.Lock()
	delete(t.callbacks, id)
	t.mu.Unlock()

	t.scheduler.Clear(id)
	t.logger.Debug("interval cleared", "id", id)
}

// Fire runs the callback registered for a received tick.
// It reports false when no callback is registered (a tick raced a clear).
func (t *Timers) Fire(id string) bool {
	t.mu.Lock()
	fn, ok := t.callbacks[id]
	t.mu.Unlock()
	if !ok || fn == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("interval callback panic recovered", "id", id, "panic", r)
		}
	}()
	fn()
	return true
}

// Has reports whether a callback is registered for id.
func (t *Timers) Has(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.callbacks[id]
	return ok
}

// IDs returns the registered ids in sorted order.
func (t *Timers) IDs() []string {
	t.mu.Lock()
	ids := make([]string, 0, len(t.callbacks))
	for id := range t.callbacks {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	sort.Strings(ids)
	return ids
}
