package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the deck.
const (
	MeasurementPress = "button_press"
	MeasurementImage = "key_image"
)

// WritePress records one button press delivery attempt.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - publisher: Channel the press went through ("http", "mqtt")
//   - buttonIndex: 1-based key index
//   - ok: Whether delivery succeeded
//   - took: Delivery latency
//
// Example:
//
//	client.WritePress("http", 3, true, 42*time.Millisecond)
func (c *Client) WritePress(publisher string, buttonIndex int, ok bool, took time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementPress,
		map[string]string{
			"publisher": publisher,
			"button":    strconv.Itoa(buttonIndex),
		},
		map[string]interface{}{
			"success":     ok,
			"duration_ms": float64(took.Microseconds()) / 1000,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteImageRendered records a key image produced for an instance.
//
// Parameters:
//   - action: Action ID of the instance
//   - lines: Number of content lines rendered
//   - bytes: Size of the data URI sent
func (c *Client) WriteImageRendered(action string, lines, bytes int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		MeasurementImage,
		map[string]string{
			"action": action,
		},
		map[string]interface{}{
			"lines": lines,
			"bytes": bytes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
