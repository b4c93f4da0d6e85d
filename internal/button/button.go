package button

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-deck/internal/action"
	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-deck/internal/journal"
	"github.com/nerrad567/gray-logic-deck/internal/plugin"
	"github.com/nerrad567/gray-logic-deck/internal/protocol"
	"github.com/nerrad567/gray-logic-deck/internal/transport"
)

// EventStopBackground is the bus channel asking for a device background to
// be released. Its data is a StopBackground value.
const EventStopBackground = "stopBackground"

// StopBackground is the data emitted on EventStopBackground.
type StopBackground struct {
	Device string
}

// Journal records press deliveries.
type Journal interface {
	Record(ctx context.Context, e *journal.Entry) error
}

// Telemetry receives press and image points; implemented by influxdb.Client.
type Telemetry interface {
	WritePress(publisher string, buttonIndex int, ok bool, took time.Duration)
	WriteImageRendered(action string, lines, bytes int)
}

// Logger defines the logging interface used by the button.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Deps are the collaborators of a Button. Runtime is required.
type Deps struct {
	Runtime *plugin.Runtime
	Config  config.ButtonConfig
	// BaseDir resolves a relative content file path.
	BaseDir string
	// DefaultImage is shown when a forced render cannot read the content file.
	DefaultImage string
	// Publishers are added after the always-present HTTP publisher.
	Publishers []Publisher
	Journal    Journal
	Telemetry  Telemetry
	Logger     Logger
}

// Button is the content button action bound to one runtime.
//
// All handlers, retries and polls run on the runtime loop; press delivery
// runs on its own goroutine so a slow endpoint never stalls the loop.
type Button struct {
	rt         *plugin.Runtime
	cfg        config.ButtonConfig
	actionID   string
	content    string
	defaultImg string
	publishers []Publisher
	journal    Journal
	telemetry  Telemetry
	logger     Logger

	mu      sync.Mutex
	last    map[string]string
	retries map[string][]func() bool

	ctx      context.Context
	inflight sync.WaitGroup
}

// New creates a button. Register must be called to receive events.
func New(deps Deps) *Button {
	logger := deps.Logger
	if logger == nil {
		logger = deps.Runtime.Logger()
	}

	content := deps.Config.ContentFile
	if content != "" && !filepath.IsAbs(content) {
		content = filepath.Join(deps.BaseDir, content)
	}

	publishers := []Publisher{NewHTTPPublisher(&http.Client{Timeout: deps.Config.HTTP.Timeout})}
	publishers = append(publishers, deps.Publishers...)

	return &Button{
		rt:         deps.Runtime,
		cfg:        deps.Config,
		actionID:   deps.Runtime.ActionID(deps.Config.ActionName),
		content:    content,
		defaultImg: deps.DefaultImage,
		publishers: publishers,
		journal:    deps.Journal,
		telemetry:  deps.Telemetry,
		logger:     logger,
		last:       make(map[string]string),
		retries:    make(map[string][]func() bool),
		ctx:        context.Background(),
	}
}

// ActionID returns the qualified action id the button subscribes to.
func (b *Button) ActionID() string {
	return b.actionID
}

// Register subscribes the button's handlers. Cancelling ctx aborts
// in-flight press deliveries. The returned func unsubscribes.
func (b *Button) Register(ctx context.Context) (stop func()) {
	b.ctx = ctx

	stopActions := b.rt.Dispatcher().Actions(b.actionID, plugin.Handlers{
		protocol.EventWillAppear:         b.handleWillAppear,
		protocol.EventWillDisappear:      b.handleWillDisappear,
		protocol.EventDidReceiveSettings: b.handleDidReceiveSettings,
		protocol.EventSendToPlugin:       b.handleSendToPlugin,
		protocol.EventKeyUp:              b.handlePress,
		protocol.EventTouchTap:           b.handlePress,
	})

	bus := b.rt.Bus()
	bus.Subscribe(EventStopBackground, func(data any) {
		if ev, ok := data.(StopBackground); ok {
			b.rt.StopBackground(ev.Device) //nolint:errcheck // Logged by the runtime
		}
	})

	removeObserver := b.rt.Store().OnDevicesChanged(func(_, removed []string) {
		for _, device := range removed {
			bus.Emit(EventStopBackground, StopBackground{Device: device})
		}
	})

	b.logger.Info("button registered", "action", b.actionID, "content_file", b.content)

	return func() {
		stopActions()
		removeObserver()
		bus.Unsubscribe(EventStopBackground)
	}
}

// Wait blocks until in-flight press deliveries have finished.
func (b *Button) Wait() {
	b.inflight.Wait()
}

// =============================================================================
// Lifecycle
// =============================================================================

func (b *Button) handleWillAppear(msg protocol.Message) error {
	id := msg.Context
	b.logger.Debug("button appeared", "context", id, "device", msg.Device)

	b.Render(id, true)

	stops := make([]func() bool, 0, len(b.cfg.RetryDelays))
	for _, delay := range b.cfg.RetryDelays {
		stops = append(stops, b.rt.After(delay, func() {
			b.Render(id, true)
			b.rt.FlushQueue()
		}))
	}
	b.mu.Lock()
	b.stopRetriesLocked(id)
	b.retries[id] = stops
	b.mu.Unlock()

	b.rt.Timers().SetInterval(PollTimerID(id), b.cfg.PollInterval, func() {
		b.Render(id, false)
	})
	return nil
}

func (b *Button) handleWillDisappear(msg protocol.Message) error {
	id := msg.Context
	b.rt.Timers().ClearInterval(PollTimerID(id))

	b.mu.Lock()
	b.stopRetriesLocked(id)
	delete(b.last, id)
	b.mu.Unlock()

	b.logger.Debug("button disappeared", "context", id, "device", msg.Device)
	b.rt.Bus().Emit(EventStopBackground, StopBackground{Device: msg.Device})
	return nil
}

func (b *Button) stopRetriesLocked(id string) {
	for _, stop := range b.retries[id] {
		stop()
	}
	delete(b.retries, id)
}

func (b *Button) handleDidReceiveSettings(msg protocol.Message) error {
	b.logger.Debug("button settings received", "context", msg.Context, "bytes", len(msg.Payload))
	return nil
}

// pluginMessage is the property inspector's sendToPlugin payload.
type pluginMessage struct {
	Event    string          `json:"event"`
	Settings json.RawMessage `json:"settings"`
}

func (b *Button) handleSendToPlugin(msg protocol.Message) error {
	var payload pluginMessage
	if err := msg.Decode(&payload); err != nil {
		return err
	}
	if payload.Event != protocol.EventSetGlobalSettings {
		b.logger.Debug("sendToPlugin payload ignored", "context", msg.Context, "event", payload.Event)
		return nil
	}

	var settings any = payload.Settings
	if len(payload.Settings) == 0 {
		settings = map[string]any{}
	}
	if err := b.rt.SetGlobalSettings(settings); err != nil && !errors.Is(err, transport.ErrUnavailable) {
		return err
	}
	return nil
}

// =============================================================================
// Rendering
// =============================================================================

// Render reads the content file and shows it on the key of instance id.
//
// A forced render always sends the image; otherwise unchanged content is
// skipped. A forced render that cannot read the file falls back to the
// default image.
func (b *Button) Render(id string, force bool) {
	inst, ok := b.rt.Registry().Get(id)
	if !ok {
		return
	}

	data, err := os.ReadFile(b.content)
	if err != nil {
		b.logger.Warn("content file unreadable", "context", id, "path", b.content, "error", err)
		if force && b.defaultImg != "" {
			inst.SetImage(b.ctx, b.defaultImg)
		}
		return
	}

	text := string(data)
	b.mu.Lock()
	unchanged := b.last[id] == text
	b.last[id] = text
	b.mu.Unlock()
	if unchanged && !force {
		return
	}

	lines := ParseContent(text, b.cfg.ContentPrefix)
	if len(lines) == 0 {
		b.logger.Warn("no content lines found", "context", id, "path", b.content)
		return
	}

	image := action.SVGDataURI(RenderSVG(lines))
	if err := <-inst.SetImage(b.ctx, image); err != nil && !errors.Is(err, action.ErrQueued) {
		b.logger.Warn("key image not delivered", "context", id, "error", err)
	}

	b.rt.Metrics().ImageRendered()
	if b.telemetry != nil {
		b.telemetry.WriteImageRendered(b.actionID, len(lines), len(image))
	}
}

// =============================================================================
// Presses
// =============================================================================

func (b *Button) handlePress(msg protocol.Message) error {
	var payload protocol.InstancePayload
	if err := msg.Decode(&payload); err != nil {
		return err
	}

	var settings Settings
	if inst, ok := b.rt.Registry().Get(msg.Context); ok {
		settings = ParseSettings(inst.Settings())
	}

	index := ButtonIndex(settings, payload.Coordinates, b.cfg.Columns)
	press := Press{
		Context:     msg.Context,
		Device:      msg.Device,
		ButtonIndex: index,
		Path:        PressPath(index),
		URL:         ResolveURL(settings.HTTPURL, b.cfg.HTTP.BaseURL, b.cfg.HTTP.DefaultURL),
	}
	b.logger.Info("button pressed", "context", msg.Context, "event", msg.Event, "button", index, "url", press.URL)

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.Deliver(b.ctx, press)
	}()
	return nil
}

// Deliver sends p through every publisher in order, recording each attempt.
func (b *Button) Deliver(ctx context.Context, p Press) {
	for _, pub := range b.publishers {
		start := time.Now()
		target, err := pub.Publish(ctx, p)
		took := time.Since(start)

		entry := &journal.Entry{
			Context:     p.Context,
			Device:      p.Device,
			ButtonIndex: p.ButtonIndex,
			Path:        p.Path,
			Publisher:   pub.Name(),
			Target:      target,
			Success:     err == nil,
			Duration:    took,
		}
		if err != nil {
			entry.Error = err.Error()
			b.logger.Warn("press delivery failed", "publisher", pub.Name(), "target", target, "button", p.ButtonIndex, "error", err)
		} else {
			b.logger.Info("press delivered", "publisher", pub.Name(), "target", target, "button", p.ButtonIndex, "took", took)
		}

		b.rt.Metrics().ButtonPress(pub.Name(), err == nil, took)
		if b.telemetry != nil {
			b.telemetry.WritePress(pub.Name(), p.ButtonIndex, err == nil, took)
		}
		if b.journal != nil {
			if jerr := b.journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
				b.logger.Warn("press journal write failed", "error", jerr)
			}
		}
	}
}
