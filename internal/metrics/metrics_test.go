package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.FrameReceived("keyUp")
	m.FrameSent("setImage")
	m.HandlerError("keyUp")
	m.QueuePending(3)
	m.QueueFlushed(2)
	m.TransportOpen(true)
	m.ButtonPress("http", true, time.Millisecond)
	m.ImageRendered()

	if m.Registry() != nil {
		t.Error("Registry() on nil = non-nil")
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("nil Handler status = %d, want 404", w.Code)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status = %d", w.Code)
	}
	return w.Body.String()
}

func TestCounters(t *testing.T) {
	m := New()
	m.FrameReceived("keyUp")
	m.FrameReceived("keyUp")
	m.HandlerError("willAppear")
	m.QueuePending(4)
	m.QueueFlushed(3)
	m.QueueFlushed(0)
	m.TransportOpen(true)
	m.ButtonPress("mqtt", false, 10*time.Millisecond)
	m.ImageRendered()

	body := scrape(t, m)
	for _, want := range []string{
		`graydeck_frames_received_total{event="keyUp"} 2`,
		`graydeck_handler_errors_total{event="willAppear"} 1`,
		`graydeck_outbox_pending 4`,
		`graydeck_outbox_flushed_total 3`,
		`graydeck_transport_open 1`,
		`graydeck_button_presses_total{publisher="mqtt",result="failure"} 1`,
		`graydeck_button_press_duration_seconds_count{publisher="mqtt"} 1`,
		`graydeck_button_images_rendered_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.FrameSent("setTitle")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !strings.Contains(string(body), `graydeck_frames_sent_total{event="setTitle"} 1`) {
		t.Errorf("exposition missing frames_sent_total:\n%s", body)
	}
}
