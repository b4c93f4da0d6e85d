package plugin

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-deck/internal/action"
	"github.com/nerrad567/gray-logic-deck/internal/eventbus"
	"github.com/nerrad567/gray-logic-deck/internal/metrics"
	"github.com/nerrad567/gray-logic-deck/internal/outbox"
	"github.com/nerrad567/gray-logic-deck/internal/protocol"
	"github.com/nerrad567/gray-logic-deck/internal/timer"
	"github.com/nerrad567/gray-logic-deck/internal/transport"
)

// FlushTimerID is the interval id used to retry queued images.
const FlushTimerID = "sendPendingImages"

const (
	defaultFlushInterval = 5 * time.Second
	defaultHTTPTimeout   = 10 * time.Second

	// workBufferSize bounds work posted to the loop before it blocks.
	workBufferSize = 1024
)

// Logger defines the logging interface used by the plugin runtime.
// Compatible with logging.Logger.
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

// Config configures a Runtime.
type Config struct {
	// PluginUUID is the plugin identifier that prefixes action ids.
	PluginUUID string
	// Transport describes the host connection; an invalid value runs the
	// runtime standalone.
	Transport transport.Config
	// BaseDir resolves relative image paths.
	BaseDir string
	// DefaultImage is used when an image source cannot be loaded.
	DefaultImage string
	// FlushInterval is the queued image retry period; defaults to 5s.
	FlushInterval time.Duration
	// ExitOnClose stops Run once the host connection has ended.
	ExitOnClose bool
	// HTTPClient is used for SendHTTPRequest and remote images.
	HTTPClient *http.Client
	Logger     Logger
	Metrics    *metrics.Metrics
}

// Runtime is the root of a plugin process.
//
// It owns the transport, outbound queue, timers, action registry, store,
// dispatcher and event bus. Run executes a single logic loop: transport
// callbacks, timer ticks and work submitted with Post are handled one at a
// time in the order they arrive, so handlers never race each other.
type Runtime struct {
	cfg Config

	transport  *transport.Transport
	queue      *outbox.Queue
	timerSvc   *timer.Service
	timers     *timer.Timers
	registry   *action.Registry
	store      *Store
	dispatcher *Dispatcher
	bus        *eventbus.Bus
	http       *http.Client
	metrics    *metrics.Metrics
	logger     Logger

	work     chan func()
	done     chan struct{}
	doneOnce sync.Once
	exit     bool
}

// New wires a runtime. Nothing touches the network until Run.
func New(cfg Config) *Runtime {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	r := &Runtime{
		cfg:      cfg,
		store:    NewStore(),
		bus:      eventbus.New(),
		http:     cfg.HTTPClient,
		metrics:  cfg.Metrics,
		logger:   logger,
		timerSvc: timer.NewService(),
		work:     make(chan func(), workBufferSize),
		done:     make(chan struct{}),
	}

	r.transport = transport.New(cfg.Transport)
	r.transport.SetLogger(logger)

	r.queue = outbox.New(r)
	r.queue.SetLogger(logger)

	r.timers = timer.NewTimers(r.timerSvc)
	r.timers.SetLogger(logger)

	r.registry = action.NewRegistry(action.Deps{
		Sender:       r,
		Queue:        r,
		Images:       action.NewImageLoader(cfg.BaseDir, cfg.HTTPClient),
		DefaultImage: cfg.DefaultImage,
		Logger:       logger,
	})

	r.dispatcher = NewDispatcher(r.store, r.registry)
	r.dispatcher.SetLogger(logger)
	r.dispatcher.SetMetrics(cfg.Metrics)

	r.transport.SetOnOpen(func() { r.Post(r.handleOpen) })
	r.transport.SetOnMessage(func(raw []byte) { r.Post(func() { r.handleMessage(raw) }) })
	r.transport.SetOnError(func(err error) {
		r.Post(func() { r.logger.Warn("host connection error", "error", err) })
	})
	r.transport.SetOnClose(func() { r.Post(r.handleClose) })

	return r
}

// Run starts the transport and timer worker and executes the logic loop
// until ctx is cancelled (or the connection ends with ExitOnClose).
func (r *Runtime) Run(ctx context.Context) error {
	defer r.doneOnce.Do(func() { close(r.done) })

	timerCtx, stopTimers := context.WithCancel(ctx)
	defer stopTimers()
	go r.timerSvc.Run(timerCtx)

	if err := r.transport.Start(ctx); err != nil {
		if errors.Is(err, transport.ErrUnavailable) {
			r.logger.Warn("no host connection descriptor, running standalone")
		} else {
			return err
		}
	}

	r.logger.Info("plugin runtime started", "plugin_uuid", r.cfg.PluginUUID, "standalone", !r.transport.Available())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("plugin runtime stopping")
			return nil
		case fn := <-r.work:
			r.runWork(fn)
		case id := <-r.timerSvc.Ticks():
			r.timers.Fire(id)
		}

		if r.exit {
			r.logger.Info("host connection closed, plugin runtime exiting")
			return nil
		}
	}
}

func (r *Runtime) runWork(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("posted work panicked", "panic", rec)
		}
	}()
	fn()
}

// Post schedules fn on the logic loop. It is safe from any goroutine and
// returns immediately once Run has exited.
func (r *Runtime) Post(fn func()) {
	select {
	case r.work <- fn:
	case <-r.done:
	}
}

// After runs fn on the logic loop once delay has elapsed.
func (r *Runtime) After(delay time.Duration, fn func()) (stop func() bool) {
	t := time.AfterFunc(delay, func() { r.Post(fn) })
	return t.Stop
}

func (r *Runtime) handleOpen() {
	r.metrics.TransportOpen(true)
	r.FlushQueue()
	r.timers.SetInterval(FlushTimerID, r.cfg.FlushInterval, func() { r.FlushQueue() })
}

func (r *Runtime) handleClose() {
	r.metrics.TransportOpen(false)
	r.timers.ClearInterval(FlushTimerID)
	if r.cfg.ExitOnClose {
		r.exit = true
	}
}

func (r *Runtime) handleMessage(raw []byte) {
	if err := r.dispatcher.Dispatch(raw); err != nil && !errors.Is(err, ErrParse) {
		r.logger.Debug("dispatch completed with handler errors", "error", err)
	}
}

// FlushQueue delivers queued images while the transport is open.
func (r *Runtime) FlushQueue() int {
	n := r.queue.Flush()
	r.metrics.QueueFlushed(n)
	r.metrics.QueuePending(r.queue.Len())
	return n
}

// Send writes a frame through the transport, counting successes.
func (r *Runtime) Send(v any) error {
	if err := r.transport.Send(v); err != nil {
		return err
	}
	if f, ok := v.(protocol.Frame); ok {
		r.metrics.FrameSent(f.Event)
	}
	return nil
}

// IsOpen reports whether the transport is open.
func (r *Runtime) IsOpen() bool {
	return r.transport.IsOpen()
}

// Enqueue defers an image to the outbound queue.
func (r *Runtime) Enqueue(context, image string) {
	r.queue.Enqueue(context, image)
	r.metrics.QueuePending(r.queue.Len())
}

// Registry returns the action registry.
func (r *Runtime) Registry() *action.Registry { return r.registry }

// Store returns the process store.
func (r *Runtime) Store() *Store { return r.store }

// Dispatcher returns the event dispatcher.
func (r *Runtime) Dispatcher() *Dispatcher { return r.dispatcher }

// Bus returns the in-process event bus.
func (r *Runtime) Bus() *eventbus.Bus { return r.bus }

// Timers returns the interval table driven by the logic loop.
func (r *Runtime) Timers() *timer.Timers { return r.timers }

// Queue returns the outbound image queue.
func (r *Runtime) Queue() *outbox.Queue { return r.queue }

// Transport returns the host connection.
func (r *Runtime) Transport() *transport.Transport { return r.transport }

// PluginUUID returns the plugin identifier.
func (r *Runtime) PluginUUID() string { return r.cfg.PluginUUID }

// ActionID returns the qualified id for an action name.
func (r *Runtime) ActionID(name string) string { return r.cfg.PluginUUID + "." + name }

// Logger returns the runtime logger.
func (r *Runtime) Logger() Logger { return r.logger }

// Metrics returns the collector, which may be nil.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }
