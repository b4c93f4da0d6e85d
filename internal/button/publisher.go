package button

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-deck/internal/plugin"
)

// Publisher names.
const (
	PublisherHTTP = "http"
	PublisherMQTT = "mqtt"
)

// Press is one resolved key press.
type Press struct {
	Context     string
	Device      string
	ButtonIndex int
	Path        string
	URL         string
}

// Publisher delivers a press to one channel.
type Publisher interface {
	// Name identifies the channel in logs, metrics and the journal.
	Name() string
	// Publish delivers p and returns where it went.
	Publish(ctx context.Context, p Press) (target string, err error)
}

// HTTPPublisher POSTs the press path to the press URL.
type HTTPPublisher struct {
	client *http.Client
}

// NewHTTPPublisher creates the webhook publisher.
func NewHTTPPublisher(client *http.Client) *HTTPPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPublisher{client: client}
}

// Name implements Publisher.
func (*HTTPPublisher) Name() string { return PublisherHTTP }

// Publish implements Publisher.
func (h *HTTPPublisher) Publish(ctx context.Context, p Press) (string, error) {
	result := plugin.SendHTTPRequest(ctx, h.client, p.URL, p.Path)
	if !result.Success {
		return p.URL, errors.New(result.Error)
	}
	return p.URL, nil
}

// MQTTClient is the part of mqtt.Client the MQTT publisher needs.
type MQTTClient interface {
	PublishPress(path string, payload []byte) error
	Topics() mqtt.Topics
}

// MQTTPublisher publishes presses on <topic_prefix>/<path>.
type MQTTPublisher struct {
	client MQTTClient
}

// NewMQTTPublisher creates the broker publisher.
func NewMQTTPublisher(client MQTTClient) *MQTTPublisher {
	return &MQTTPublisher{client: client}
}

// Name implements Publisher.
func (*MQTTPublisher) Name() string { return PublisherMQTT }

// mqttBody is the press message published to the broker. path and value
// mirror the webhook body so subscribers can share one parser.
type mqttBody struct {
	Path    string `json:"path"`
	Value   string `json:"value"`
	Button  int    `json:"button"`
	Context string `json:"context"`
	Device  string `json:"device,omitempty"`
}

// Publish implements Publisher.
func (m *MQTTPublisher) Publish(_ context.Context, p Press) (string, error) {
	topic := m.client.Topics().Press(p.Path)
	payload, err := json.Marshal(mqttBody{
		Path:    p.Path,
		Value:   p.Path,
		Button:  p.ButtonIndex,
		Context: p.Context,
		Device:  p.Device,
	})
	if err != nil {
		return topic, fmt.Errorf("encoding press: %w", err)
	}
	return topic, m.client.PublishPress(p.Path, payload)
}
