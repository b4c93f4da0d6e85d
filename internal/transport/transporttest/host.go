// Package transporttest provides a fake host application for tests.
//
// A Host accepts one WebSocket connection at a time, records every text
// frame it receives, and can push frames back to the connected client.
package transporttest

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWait bounds how long Next waits for a frame.
const DefaultWait = 2 * time.Second

// Host is a fake host application listening on 127.0.0.1.
type Host struct {
	t      testing.TB
	server *httptest.Server
	frames chan []byte

	mu        sync.Mutex
	conn      *websocket.Conn
	connected chan struct{}
	once      sync.Once
}

// NewHost starts a fake host. It is shut down by t.Cleanup.
func NewHost(t testing.TB) *Host {
	t.Helper()

	h := &Host{
		t:         t,
		frames:    make(chan []byte, 256),
		connected: make(chan struct{}),
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.mu.Lock()
		h.conn = conn
		h.mu.Unlock()
		h.once.Do(func() { close(h.connected) })

		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType == websocket.TextMessage {
				h.frames <- data
			}
		}
	}))
	t.Cleanup(h.Close)
	return h
}

// Port returns the TCP port the host listens on.
func (h *Host) Port() int {
	return h.server.Listener.Addr().(*net.TCPAddr).Port
}

// WaitConnected blocks until a client has connected.
func (h *Host) WaitConnected() {
	h.t.Helper()
	select {
	case <-h.connected:
	case <-time.After(DefaultWait):
		h.t.Fatal("timed out waiting for client connection")
	}
}

// Next returns the next frame received from the client.
func (h *Host) Next() []byte {
	h.t.Helper()
	select {
	case frame := <-h.frames:
		return frame
	case <-time.After(DefaultWait):
		h.t.Fatal("timed out waiting for frame")
		return nil
	}
}

// NextJSON returns the next frame decoded into a generic map.
func (h *Host) NextJSON() map[string]any {
	h.t.Helper()
	frame := h.Next()
	var m map[string]any
	if err := json.Unmarshal(frame, &m); err != nil {
		h.t.Fatalf("decoding frame %s: %v", frame, err)
	}
	return m
}

// NextEvent skips frames until one with the given event arrives.
func (h *Host) NextEvent(event string) map[string]any {
	h.t.Helper()
	deadline := time.After(DefaultWait)
	for {
		select {
		case frame := <-h.frames:
			var m map[string]any
			if err := json.Unmarshal(frame, &m); err != nil {
				h.t.Fatalf("decoding frame %s: %v", frame, err)
			}
			if m["event"] == event {
				return m
			}
		case <-deadline:
			h.t.Fatalf("timed out waiting for %q frame", event)
			return nil
		}
	}
}

// ExpectNone fails if a frame arrives within wait.
func (h *Host) ExpectNone(wait time.Duration) {
	h.t.Helper()
	select {
	case frame := <-h.frames:
		h.t.Fatalf("unexpected frame: %s", frame)
	case <-time.After(wait):
	}
}

// Send writes v as a JSON text frame to the connected client.
func (h *Host) Send(v any) {
	h.t.Helper()
	h.WaitConnected()

	data, err := json.Marshal(v)
	if err != nil {
		h.t.Fatalf("encoding frame: %v", err)
	}
	h.SendRaw(data)
}

// SendRaw writes raw bytes as a text frame to the connected client.
func (h *Host) SendRaw(data []byte) {
	h.t.Helper()
	h.WaitConnected()

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.t.Fatalf("writing frame: %v", err)
	}
}

// Disconnect closes the client connection from the host side.
func (h *Host) Disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		//nolint:errcheck // Best-effort close frame
		h.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		h.conn.Close() //nolint:errcheck // Test teardown
	}
}

// Close disconnects the client and stops the server.
func (h *Host) Close() {
	h.Disconnect()
	h.server.Close()
}
