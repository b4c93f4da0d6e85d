// Package metrics exposes process counters in Prometheus format.
//
// All recording methods are safe on a nil *Metrics, so components can
// take an optional collector without nil checks at every call site.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graydeck"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	framesReceived *prometheus.CounterVec
	framesSent     *prometheus.CounterVec
	handlerErrors  *prometheus.CounterVec
	queuePending   prometheus.Gauge
	queueFlushed   prometheus.Counter
	transportOpen  prometheus.Gauge
	buttonPresses  *prometheus.CounterVec
	pressDuration  *prometheus.HistogramVec
	imagesRendered prometheus.Counter
}

// New creates a collector set on its own registry, including the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received from the host, by event.",
		}, []string{"event"}),
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames written to the host, by event.",
		}, []string{"event"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Event handler failures and recovered panics, by event.",
		}, []string{"event"}),
		queuePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending",
			Help:      "Image updates waiting for the transport.",
		}),
		queueFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_flushed_total",
			Help:      "Queued image updates delivered.",
		}),
		transportOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_open",
			Help:      "1 while the host connection is open.",
		}),
		buttonPresses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_presses_total",
			Help:      "Button presses delivered, by publisher and result.",
		}, []string{"publisher", "result"}),
		pressDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "button_press_duration_seconds",
			Help:      "Time to deliver a press through a publisher.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"publisher"}),
		imagesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "button_images_rendered_total",
			Help:      "Button content images rendered and handed to the host.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesReceived,
		m.framesSent,
		m.handlerErrors,
		m.queuePending,
		m.queueFlushed,
		m.transportOpen,
		m.buttonPresses,
		m.pressDuration,
		m.imagesRendered,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FrameReceived counts an inbound frame.
func (m *Metrics) FrameReceived(event string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(event).Inc()
}

// FrameSent counts an outbound frame.
func (m *Metrics) FrameSent(event string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(event).Inc()
}

// HandlerError counts a failed or panicking handler.
func (m *Metrics) HandlerError(event string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(event).Inc()
}

// QueuePending records the outbox depth.
func (m *Metrics) QueuePending(n int) {
	if m == nil {
		return
	}
	m.queuePending.Set(float64(n))
}

// QueueFlushed counts delivered queued updates.
func (m *Metrics) QueueFlushed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.queueFlushed.Add(float64(n))
}

// TransportOpen records the connection state.
func (m *Metrics) TransportOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.transportOpen.Set(1)
	} else {
		m.transportOpen.Set(0)
	}
}

// ButtonPress records one publisher's delivery of a press.
func (m *Metrics) ButtonPress(publisher string, ok bool, took time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.buttonPresses.WithLabelValues(publisher, result).Inc()
	m.pressDuration.WithLabelValues(publisher).Observe(took.Seconds())
}

// ImageRendered counts a rendered button image.
func (m *Metrics) ImageRendered() {
	if m == nil {
		return
	}
	m.imagesRendered.Inc()
}
