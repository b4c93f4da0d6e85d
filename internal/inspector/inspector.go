package inspector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-deck/internal/action"
	"github.com/nerrad567/gray-logic-deck/internal/plugin"
	"github.com/nerrad567/gray-logic-deck/internal/protocol"
	"github.com/nerrad567/gray-logic-deck/internal/transport"
)

const workBufferSize = 256

// Logger defines the logging interface used by the inspector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config configures an Inspector.
type Config struct {
	// Transport describes the host connection. Its UUID is this
	// inspector's own context.
	Transport transport.Config
	// Action and Context identify the inspected instance.
	Action  string
	Context string
	// Settings are the inspected instance's settings at launch.
	Settings json.RawMessage
	// Images loads non-inline image sources; nil resolves against the
	// working directory.
	Images *action.ImageLoader
	Logger Logger
}

// Inspector owns the inspector-mode connection and the edited settings.
type Inspector struct {
	cfg       Config
	transport *transport.Transport
	images    *action.ImageLoader
	logger    Logger

	mu       sync.RWMutex
	settings json.RawMessage

	handlersMu sync.RWMutex
	handlers   []plugin.Handlers

	work     chan func()
	done     chan struct{}
	doneOnce sync.Once
}

// New creates an inspector. Nothing touches the network until Run.
func New(cfg Config) *Inspector {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	images := cfg.Images
	if images == nil {
		images = action.NewImageLoader("", nil)
	}

	i := &Inspector{
		cfg:       cfg,
		transport: transport.New(cfg.Transport),
		images:    images,
		logger:    logger,
		settings:  append(json.RawMessage(nil), cfg.Settings...),
		work:      make(chan func(), workBufferSize),
		done:      make(chan struct{}),
	}
	i.transport.SetLogger(logger)
	i.transport.SetOnMessage(func(raw []byte) { i.post(func() { i.dispatch(raw) }) })
	i.transport.SetOnError(func(err error) { i.post(func() { i.logger.Warn("host connection error", "error", err) }) })
	return i
}

// On subscribes handlers to every inbound event.
func (i *Inspector) On(handlers plugin.Handlers) {
	i.handlersMu.Lock()
	i.handlers = append(i.handlers, handlers)
	i.handlersMu.Unlock()
}

// Run connects and processes inbound events until ctx is cancelled or the
// connection ends. Without a host descriptor it keeps local settings and
// waits for cancellation.
func (i *Inspector) Run(ctx context.Context) error {
	defer i.doneOnce.Do(func() { close(i.done) })

	if err := i.transport.Start(ctx); err != nil {
		if !errors.Is(err, transport.ErrUnavailable) {
			return fmt.Errorf("starting inspector transport: %w", err)
		}
		i.logger.Warn("no host connection descriptor, inspector running standalone")
	}
	i.logger.Info("property inspector started",
		"action", i.cfg.Action,
		"context", i.cfg.Context,
		"standalone", !i.transport.Available(),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-i.transport.Done():
			i.drain()
			i.logger.Info("host connection closed, inspector exiting")
			return nil
		case fn := <-i.work:
			i.runWork(fn)
		}
	}
}

// drain runs work that arrived before the connection ended.
func (i *Inspector) drain() {
	for {
		select {
		case fn := <-i.work:
			i.runWork(fn)
		default:
			return
		}
	}
}

func (i *Inspector) runWork(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.Error("inspector work panicked", "panic", r)
		}
	}()
	fn()
}

func (i *Inspector) post(fn func()) {
	select {
	case i.work <- fn:
	case <-i.done:
	}
}

// dispatch applies the built-in reaction, then every handler for the event.
func (i *Inspector) dispatch(raw []byte) {
	msg, err := protocol.Parse(raw)
	if err != nil {
		i.logger.Warn("dropping unparseable frame", "error", err)
		return
	}

	if msg.Event == protocol.EventDidReceiveSettings {
		var payload protocol.InstancePayload
		if err := msg.Decode(&payload); err != nil {
			i.logger.Warn("invalid didReceiveSettings payload", "error", err)
		} else {
			i.applySettings(payload.Settings)
		}
	}

	i.handlersMu.RLock()
	subs := append([]plugin.Handlers(nil), i.handlers...)
	i.handlersMu.RUnlock()

	for _, h := range subs {
		if fn := h[msg.Event]; fn != nil {
			i.call(msg, fn)
		}
	}
}

func (i *Inspector) call(msg protocol.Message, fn plugin.Handler) {
	defer func() {
		if r := recover(); r != nil {
			herr := &plugin.HandlerError{Event: msg.Event, Context: msg.Context, Handler: "inspector", Panic: r}
			i.logger.Error("inspector handler failed", "error", herr)
		}
	}()
	if err := fn(msg.Clone()); err != nil {
		herr := &plugin.HandlerError{Event: msg.Event, Context: msg.Context, Handler: "inspector", Err: err}
		i.logger.Error("inspector handler failed", "error", herr)
	}
}

// Settings returns a copy of the edited settings.
func (i *Inspector) Settings() json.RawMessage {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return append(json.RawMessage(nil), i.settings...)
}

// DecodeSettings unmarshals the edited settings into v.
func (i *Inspector) DecodeSettings(v any) error {
	raw := i.Settings()
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (i *Inspector) applySettings(raw json.RawMessage) {
	i.mu.Lock()
	i.settings = append(json.RawMessage(nil), raw...)
	i.mu.Unlock()
	i.logger.Debug("settings replaced by host", "bytes", len(raw))
}

// UpdateSettings replaces the settings locally and persists them.
func (i *Inspector) UpdateSettings(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	i.mu.Lock()
	i.settings = raw
	i.mu.Unlock()

	return i.send(protocol.Frame{
		Event:   protocol.EventSetSettings,
		Context: i.cfg.Transport.UUID,
		Payload: json.RawMessage(raw),
	})
}

func (i *Inspector) send(frame protocol.Frame) error {
	if err := i.transport.Send(frame); err != nil {
		i.logger.Warn("inspector send failed", "event", frame.Event, "error", err)
		return err
	}
	return nil
}

// SendToPlugin forwards payload to the plugin process.
func (i *Inspector) SendToPlugin(payload any) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventSendToPlugin,
		Action:  i.cfg.Action,
		Context: i.cfg.Transport.UUID,
		Payload: payload,
	})
}

// SetState switches the inspected instance's state.
func (i *Inspector) SetState(state int) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventSetState,
		Context: i.cfg.Context,
		Payload: protocol.StatePayload{State: state},
	})
}

// SetTitle sets the inspected instance's title.
func (i *Inspector) SetTitle(title string) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventSetTitle,
		Context: i.cfg.Context,
		Payload: protocol.TitlePayload{Title: title, Target: protocol.TargetBoth},
	})
}

// SetImage shows src on the inspected instance. Non-inline sources are
// rasterised first; the channel receives the load or send result.
func (i *Inspector) SetImage(ctx context.Context, src string) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		image, err := i.images.Load(ctx, src)
		if err != nil {
			result <- err
			return
		}
		result <- i.send(protocol.Frame{
			Event:   protocol.EventSetImage,
			Context: i.cfg.Context,
			Payload: protocol.ImagePayload{Image: image, Target: protocol.TargetBoth},
		})
	}()
	return result
}

// GetGlobalSettings asks the host for the plugin's global settings.
func (i *Inspector) GetGlobalSettings() error {
	return i.send(protocol.Frame{Event: protocol.EventGetGlobalSettings, Context: i.cfg.Transport.UUID})
}

// SetGlobalSettings persists the plugin's global settings.
func (i *Inspector) SetGlobalSettings(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding global settings: %w", err)
	}
	return i.send(protocol.Frame{
		Event:   protocol.EventSetGlobalSettings,
		Context: i.cfg.Transport.UUID,
		Payload: json.RawMessage(raw),
	})
}

// OpenURL asks the host to open url in the default browser.
func (i *Inspector) OpenURL(url string) error {
	return i.send(protocol.Frame{Event: protocol.EventOpenURL, Payload: protocol.URLPayload{URL: url}})
}

// IsOpen reports whether the host connection is open.
func (i *Inspector) IsOpen() bool {
	return i.transport.IsOpen()
}

