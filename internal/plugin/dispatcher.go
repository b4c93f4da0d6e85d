package plugin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-deck/internal/action"
	"github.com/nerrad567/gray-logic-deck/internal/metrics"
	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// Handler reacts to one dispatched message. The message is a deep copy
// owned by the handler.
type Handler func(msg protocol.Message) error

// Handlers maps event names to handlers.
type Handlers map[string]Handler

// handlerGlobal names global subscriptions in HandlerError.
const handlerGlobal = "global"

// handlerBuiltin names built-in reactions in HandlerError.
const handlerBuiltin = "builtin"

type subscription struct {
	id       uint64
	actionID string
	handlers Handlers
}

// Dispatcher routes inbound frames to built-in reactions and subscribed
// handlers.
//
// Messages without an action belong to the global family: every global
// subscription's handler runs in registration order, then the built-in
// reaction runs once. Messages with an action belong to the instance
// family: for each subscription whose action id matches, the built-in
// reaction runs first and then the subscription's handler.
//
// Dispatch is intended to be called from a single goroutine (the runtime
// loop). Subscribing and unsubscribing are safe from any goroutine.
type Dispatcher struct {
	store    *Store
	registry *action.Registry
	metrics  *metrics.Metrics
	logger   Logger

	mu      sync.RWMutex
	globals []*subscription
	actions []*subscription
	nextID  uint64
}

// NewDispatcher creates a dispatcher updating store and registry.
func NewDispatcher(store *Store, registry *action.Registry) *Dispatcher {
	return &Dispatcher{
		store:    store,
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for dispatch diagnostics.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetMetrics sets the collector for frame and handler error counts.
func (d *Dispatcher) SetMetrics(m *metrics.Metrics) {
	d.metrics = m
}

// Global subscribes handlers to global-family events.
//
// Returns:
//   - func(): Removes the subscription; safe to call more than once
func (d *Dispatcher) Global(handlers Handlers) (stop func()) {
	return d.subscribe(&d.globals, "", handlers)
}

// Actions subscribes handlers to instance-family events whose action
// equals actionID.
//
// Returns:
//   - func(): Removes the subscription; safe to call more than once
func (d *Dispatcher) Actions(actionID string, handlers Handlers) (stop func()) {
	return d.subscribe(&d.actions, actionID, handlers)
}

func (d *Dispatcher) subscribe(list *[]*subscription, actionID string, handlers Handlers) func() {
	d.mu.Lock()
	d.nextID++
	sub := &subscription{id: d.nextID, actionID: actionID, handlers: handlers}
	*list = append(*list, sub)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, s := range *list {
				if s.id == sub.id {
					*list = append((*list)[:i:i], (*list)[i+1:]...)
					return
				}
			}
		})
	}
}

func (d *Dispatcher) snapshot(list []*subscription) []*subscription {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*subscription(nil), list...)
}

// Dispatch parses raw, records it as the current message and routes it.
//
// Returns:
//   - error: Wraps ErrParse for invalid frames; otherwise the joined
//     *HandlerError values of failing handlers, or nil
func (d *Dispatcher) Dispatch(raw []byte) error {
	msg, err := protocol.Parse(raw)
	if err != nil {
		d.logger.Warn("dropping unparseable frame", "error", err, "bytes", len(raw))
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return d.DispatchMessage(msg)
}

// DispatchMessage routes an already parsed message.
func (d *Dispatcher) DispatchMessage(msg protocol.Message) error {
	d.store.setCurrent(msg)
	d.metrics.FrameReceived(msg.Event)
	d.logger.Debug("dispatching", "event", msg.Event, "action", msg.Action, "context", msg.Context)

	var errs []error
	if msg.IsInstance() {
		errs = d.dispatchInstance(msg)
	} else {
		errs = d.dispatchGlobal(msg)
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) dispatchGlobal(msg protocol.Message) []error {
	var errs []error
	for _, sub := range d.snapshot(d.globals) {
		if h := sub.handlers[msg.Event]; h != nil {
			if err := d.call(handlerGlobal, msg, h); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := d.call(handlerBuiltin, msg, d.globalBuiltin); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (d *Dispatcher) dispatchInstance(msg protocol.Message) []error {
	var errs []error
	for _, sub := range d.snapshot(d.actions) {
		if msg.Action != sub.actionID {
			continue
		}

		if err := d.call(handlerBuiltin, msg, d.instanceBuiltin); err != nil {
			errs = append(errs, err)
		}

		if msg.Event == protocol.ReservedActionID {
			continue
		}
		if h := sub.handlers[msg.Event]; h != nil {
			if err := d.call(sub.actionID, msg, h); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// call runs h with a private copy of msg, converting errors and panics
// into a logged *HandlerError.
func (d *Dispatcher) call(name string, msg protocol.Message, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Event: msg.Event, Context: msg.Context, Handler: name, Panic: r}
		}
		if err != nil {
			d.metrics.HandlerError(msg.Event)
			d.logger.Error("event handler failed", "event", msg.Event, "context", msg.Context, "handler", name, "error", err)
		}
	}()

	if herr := h(msg.Clone()); herr != nil {
		return &HandlerError{Event: msg.Event, Context: msg.Context, Handler: name, Err: herr}
	}
	return nil
}

// globalBuiltin keeps the store in step with global events.
func (d *Dispatcher) globalBuiltin(msg protocol.Message) error {
	switch msg.Event {
	case protocol.EventDidReceiveGlobalSettings:
		var payload protocol.GlobalSettingsPayload
		if err := msg.Decode(&payload); err != nil {
			return err
		}
		d.store.setGlobalSettings(payload.Settings)
		d.logger.Debug("global settings updated", "bytes", len(payload.Settings))

	case protocol.EventDeviceDidConnect:
		if msg.Device != "" {
			d.store.addDevice(msg.Device)
			d.logger.Info("device connected", "device", msg.Device)
		}

	case protocol.EventDeviceDidDisconnect:
		if msg.Device != "" {
			d.store.removeDevice(msg.Device)
			d.logger.Info("device disconnected", "device", msg.Device)
		}

	case protocol.EventSendUserInfo:
		d.store.setUserInfo(msg.Payload)
	}
	return nil
}

// instanceBuiltin keeps the action registry in step with lifecycle events.
func (d *Dispatcher) instanceBuiltin(msg protocol.Message) error {
	switch msg.Event {
	case protocol.EventWillAppear:
		var payload protocol.InstancePayload
		if err := msg.Decode(&payload); err != nil {
			return err
		}
		d.registry.Add(msg.Action, msg.Context, payload.Settings)

	case protocol.EventWillDisappear:
		d.registry.Remove(msg.Context)

	case protocol.EventDidReceiveSettings:
		var payload protocol.InstancePayload
		if err := msg.Decode(&payload); err != nil {
			return err
		}
		if inst, ok := d.registry.Get(msg.Context); ok {
			inst.ApplySettings(payload.Settings)
		}

	case protocol.EventTitleParametersDidChange:
		var payload protocol.InstancePayload
		if err := msg.Decode(&payload); err != nil {
			return err
		}
		if inst, ok := d.registry.Get(msg.Context); ok {
			inst.ApplyTitle(payload.Title, payload.TitleParameters)
		}
	}
	return nil
}
