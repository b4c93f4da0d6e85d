package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// Connection constants.
const (
	// defaultHost is the loopback address the host application listens on.
	defaultHost = "127.0.0.1"

	// defaultHandshakeTimeout bounds the WebSocket upgrade.
	defaultHandshakeTimeout = 5 * time.Second

	// closeGracePeriod is how long Close waits for the close frame to be written.
	closeGracePeriod = time.Second
)

// State is the lifecycle state of the connection.
type State int32

const (
	// StateUnavailable means no descriptor was supplied; permanent.
	StateUnavailable State = iota
	// StateIdle means a descriptor exists but Start has not been called.
	StateIdle
	// StateConnecting means the dial or handshake is in progress.
	StateConnecting
	// StateOpen means frames may be sent.
	StateOpen
	// StateClosed is terminal; the host relaunches the process.
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateUnavailable:
		return "unavailable"
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Config identifies the host endpoint and this process.
type Config struct {
	// Port is the host application's local WebSocket port.
	Port int
	// UUID is the instance/context identifier sent in the handshake.
	UUID string
	// RegisterEvent is the handshake event name (registerPlugin or
	// registerPropertyInspector).
	RegisterEvent string
	// Host defaults to 127.0.0.1.
	Host string
	// HandshakeTimeout defaults to 5s.
	HandshakeTimeout time.Duration
}

func (c Config) valid() bool {
	return c.Port > 0 && c.Port <= 65535 && c.UUID != "" && c.RegisterEvent != ""
}

// URL returns the WebSocket URL of the host.
func (c Config) URL() string {
	host := c.Host
	if host == "" {
		host = defaultHost
	}
	return fmt.Sprintf("ws://%s:%d", host, c.Port)
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Transport is the single connection to the host application.
//
// It dials once, writes the registration handshake before anything else,
// and then delivers every inbound text frame to OnMessage in receipt order.
// There is no reconnection: once closed the transport stays closed.
//
// Thread Safety:
//   - Send, State and the Set* callbacks are safe for concurrent use.
//   - Callbacks run on the transport's reader goroutine, one at a time.
type Transport struct {
	cfg Config

	conn    *websocket.Conn
	state   State
	stateMu sync.RWMutex

	// writeMu serialises writes; gorilla connections allow one writer.
	writeMu sync.Mutex

	onOpen     func()
	onMessage  func(raw []byte)
	onError    func(err error)
	onClose    func()
	callbackMu sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a transport for cfg. An invalid cfg yields a transport that
// is permanently unavailable; it never panics and every Send fails with
// ErrUnavailable.
func New(cfg Config) *Transport {
	t := &Transport{
		cfg:    cfg,
		state:  StateIdle,
		logger: noopLogger{},
		done:   make(chan struct{}),
	}
	if !cfg.valid() {
		t.state = StateUnavailable
	}
	return t
}

// Unavailable returns a transport in the permanent no-transport state.
func Unavailable() *Transport {
	return New(Config{})
}

// SetOnOpen sets the callback invoked once the handshake has been written.
func (t *Transport) SetOnOpen(callback func()) {
	t.callbackMu.Lock()
	t.onOpen = callback
	t.callbackMu.Unlock()
}

// SetOnMessage sets the callback invoked for each inbound text frame.
func (t *Transport) SetOnMessage(callback func(raw []byte)) {
	t.callbackMu.Lock()
	t.onMessage = callback
	t.callbackMu.Unlock()
}

// SetOnError sets the callback invoked for dial, handshake and read failures.
func (t *Transport) SetOnError(callback func(err error)) {
	t.callbackMu.Lock()
	t.onError = callback
	t.callbackMu.Unlock()
}

// SetOnClose sets the callback invoked once when the connection ends.
func (t *Transport) SetOnClose(callback func()) {
	t.callbackMu.Lock()
	t.onClose = callback
	t.callbackMu.Unlock()
}

// SetLogger sets a logger for connection lifecycle logging.
func (t *Transport) SetLogger(logger Logger) {
	t.loggerMu.Lock()
	t.logger = logger
	t.loggerMu.Unlock()
}

func (t *Transport) getLogger() Logger {
	t.loggerMu.RLock()
	defer t.loggerMu.RUnlock()
	return t.logger
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return t.state
}

// IsOpen reports whether frames can currently be sent.
func (t *Transport) IsOpen() bool {
	return t.State() == StateOpen
}

// Available reports whether a descriptor was supplied.
func (t *Transport) Available() bool {
	return t.State() != StateUnavailable
}

// Done is closed when the connection has ended. It is never closed for an
// unavailable transport.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

func (t *Transport) setState(s State) {
	t.stateMu.Lock()
	t.state = s
	t.stateMu.Unlock()
}

// Start dials the host in the background.
//
// It performs the following sequence on its own goroutine:
//  1. Dials ws://127.0.0.1:{port}
//  2. Writes {"event": registerEvent, "uuid": uuid} exactly once
//  3. Marks the connection OPEN and invokes OnOpen
//  4. Reads frames until the connection or ctx ends, then invokes OnClose
//
// Parameters:
//   - ctx: Cancelling ctx closes the connection
//
// Returns:
//   - error: ErrUnavailable when no descriptor was supplied; nil otherwise
//     (connection failures are reported through OnError)
func (t *Transport) Start(ctx context.Context) error {
	if t.State() == StateUnavailable {
		return ErrUnavailable
	}

	t.startOnce.Do(func() {
		t.setState(StateConnecting)
		go t.run(ctx)
	})
	return nil
}

func (t *Transport) run(ctx context.Context) {
	logger := t.getLogger()

	timeout := t.cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	url := t.cfg.URL()
	logger.Debug("dialing host", "url", url)

	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() //nolint:errcheck // Upgrade response body carries nothing useful
	}
	if err != nil {
		t.fail(fmt.Errorf("%w: %w", ErrConnectFailed, err))
		return
	}

	// The handshake and the OPEN transition happen under the write lock so
	// no Send can slip a frame in ahead of the registration.
	t.writeMu.Lock()
	t.conn = conn
	err = conn.WriteJSON(protocol.Registration{Event: t.cfg.RegisterEvent, UUID: t.cfg.UUID})
	if err == nil {
		t.setState(StateOpen)
	}
	t.writeMu.Unlock()

	if err != nil {
		conn.Close() //nolint:errcheck // Handshake failed; connection is unusable
		t.fail(fmt.Errorf("%w: handshake: %w", ErrConnectFailed, err))
		return
	}

	logger.Info("connected to host", "url", url, "register_event", t.cfg.RegisterEvent)

	stop := context.AfterFunc(ctx, func() {
		t.Close() //nolint:errcheck // Shutdown path
	})
	defer stop()

	t.callbackMu.RLock()
	onOpen := t.onOpen
	t.callbackMu.RUnlock()
	if onOpen != nil {
		onOpen()
	}

	t.readLoop(conn)
}

// readLoop delivers frames until the connection fails or is closed.
func (t *Transport) readLoop(conn *websocket.Conn) {
	logger := t.getLogger()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && t.State() == StateOpen {
				t.reportError(err)
			} else {
				logger.Debug("host connection closed", "error", err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		t.callbackMu.RLock()
		onMessage := t.onMessage
		t.callbackMu.RUnlock()
		if onMessage != nil {
			onMessage(data)
		}
	}

	t.finish()
}

// fail reports a connection-level failure and closes.
func (t *Transport) fail(err error) {
	t.reportError(err)
	t.finish()
}

func (t *Transport) reportError(err error) {
	t.getLogger().Warn("transport error", "error", err)

	t.callbackMu.RLock()
	onError := t.onError
	t.callbackMu.RUnlock()
	if onError != nil {
		onError(err)
	}
}

// finish moves to CLOSED and notifies OnClose exactly once.
func (t *Transport) finish() {
	t.closeOnce.Do(func() {
		t.writeMu.Lock()
		t.setState(StateClosed)
		if t.conn != nil {
			t.conn.Close() //nolint:errcheck // Connection already ending
		}
		t.writeMu.Unlock()

		close(t.done)
		t.getLogger().Info("host connection ended")

		t.callbackMu.RLock()
		onClose := t.onClose
		t.callbackMu.RUnlock()
		if onClose != nil {
			onClose()
		}
	})
}

// Send marshals v to JSON and writes it as one text frame.
//
// Parameters:
//   - v: Any JSON-marshallable value, normally a protocol.Frame
//
// Returns:
//   - error: ErrUnavailable without a descriptor, ErrNotReady unless OPEN,
//     ErrEncode or ErrSendFailed otherwise; nil on success
func (t *Transport) Send(v any) error {
	if t.State() == StateUnavailable {
		return ErrUnavailable
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if state := t.State(); state != StateOpen {
		return fmt.Errorf("%w: connection %s", ErrNotReady, state)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

// Close sends a normal close frame and tears the connection down. The read
// loop observes the closure and invokes OnClose. Safe to call repeatedly.
func (t *Transport) Close() error {
	t.writeMu.Lock()
	if t.State() == StateOpen && t.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		//nolint:errcheck // Best-effort close frame
		t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		t.conn.Close() //nolint:errcheck // Read loop reports the outcome
	}
	t.writeMu.Unlock()
	return nil
}
