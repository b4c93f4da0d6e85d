package action

import (
	"encoding/json"
	"sync"
)

// Sender is the transport side used by instances.
type Sender interface {
	Send(v any) error
	IsOpen() bool
}

// Enqueuer receives images that could not be sent.
type Enqueuer interface {
	Enqueue(context, image string)
}

// Logger defines the logging interface used by the registry and instances.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Deps are the collaborators shared by every instance.
type Deps struct {
	Sender Sender
	Queue  Enqueuer
	Images *ImageLoader
	// DefaultImage is loaded when an image source fails; empty disables it.
	DefaultImage string
	Logger       Logger
}

// Registry holds the live action instances keyed by context.
//
// Iteration order is insertion order. All public methods are thread-safe.
type Registry struct {
	deps *Deps

	mu     sync.RWMutex
	byCtx  map[string]*Instance
	order  []string
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	if deps.Images == nil {
		deps.Images = NewImageLoader("", nil)
	}
	return &Registry{
		deps:   &deps,
		byCtx:  make(map[string]*Instance),
		logger: deps.Logger,
	}
}

// Add records a new instance. If context is already registered the
// existing instance is returned unchanged and added is false.
func (r *Registry) Add(actionType, context string, settings json.RawMessage) (inst *Instance, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byCtx[context]; ok {
		return existing, false
	}

	inst = &Instance{
		Action:  actionType,
		Context: context,
		deps:    r.deps,
	}
	inst.ApplySettings(settings)

	r.byCtx[context] = inst
	r.order = append(r.order, context)
	r.logger.Debug("action instance added", "action", actionType, "context", context)
	return inst, true
}

// Remove deletes the instance for context. It reports whether one existed.
func (r *Registry) Remove(context string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCtx[context]; !ok {
		return false
	}
	delete(r.byCtx, context)
	for idx, c := range r.order {
		if c == context {
			r.order = append(r.order[:idx], r.order[idx+1:]...)
			break
		}
	}
	r.logger.Debug("action instance removed", "context", context)
	return true
}

// Get returns the instance for context.
func (r *Registry) Get(context string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byCtx[context]
	return inst, ok
}

// ByType returns all instances of actionType in insertion order.
func (r *Registry) ByType(actionType string) []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Instance
	for _, c := range r.order {
		if inst := r.byCtx[c]; inst.Action == actionType {
			out = append(out, inst)
		}
	}
	return out
}

// All returns every instance in insertion order.
func (r *Registry) All() []*Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Instance, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, r.byCtx[c])
	}
	return out
}

// Contexts returns the registered contexts in insertion order.
func (r *Registry) Contexts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCtx)
}
