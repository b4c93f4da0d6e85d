package bootstrap

import (
	"encoding/json"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
	"github.com/nerrad567/gray-logic-deck/internal/transport"
)

// Mode selects which process root runs.
type Mode int

const (
	// ModePlugin runs the controller: the plugin runtime and its actions.
	ModePlugin Mode = iota
	// ModeInspector runs the property inspector for one action instance.
	ModeInspector
)

// String returns the mode name for logging.
func (m Mode) String() string {
	if m == ModeInspector {
		return "inspector"
	}
	return "plugin"
}

// Info is the application/plugin metadata object passed by the host.
type Info struct {
	Application ApplicationInfo `json:"application"`
	Plugin      PluginInfo      `json:"plugin"`
	Devices     []DeviceInfo    `json:"devices,omitempty"`
}

// ApplicationInfo describes the host application.
type ApplicationInfo struct {
	Language string `json:"language,omitempty"`
	Platform string `json:"platform,omitempty"`
	Version  string `json:"version,omitempty"`
}

// PluginInfo identifies the plugin bundle.
type PluginInfo struct {
	UUID    string `json:"uuid,omitempty"`
	Version string `json:"version,omitempty"`
}

// DeviceInfo describes a device known at launch.
type DeviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type int    `json:"type,omitempty"`
}

// InspectorInfo is the fifth launch argument: the inspected instance.
type InspectorInfo struct {
	Action  string                   `json:"action"`
	Context string                   `json:"context"`
	Payload protocol.InstancePayload `json:"payload"`
}

// Descriptor is the connection descriptor supplied by the host at launch.
// It is immutable for the life of the process.
type Descriptor struct {
	Port          int
	UUID          string
	RegisterEvent string
	Info          Info
	// Inspector is non-nil in inspector mode.
	Inspector *InspectorInfo
}

// Mode reports which process root the descriptor selects.
func (d Descriptor) Mode() Mode {
	if d.Inspector != nil {
		return ModeInspector
	}
	return ModePlugin
}

// Valid reports whether the descriptor is complete enough to connect.
func (d Descriptor) Valid() bool {
	return d.Port > 0 && d.Port <= 65535 && d.UUID != "" && d.RegisterEvent != ""
}

// PluginUUID returns the plugin identifier from the metadata, or fallback
// when the host did not supply one.
func (d Descriptor) PluginUUID(fallback string) string {
	if d.Info.Plugin.UUID != "" {
		return d.Info.Plugin.UUID
	}
	return fallback
}

// TransportConfig converts the descriptor into transport settings. An
// invalid descriptor yields a config the transport treats as unavailable.
func (d Descriptor) TransportConfig() transport.Config {
	if !d.Valid() {
		return transport.Config{}
	}
	return transport.Config{
		Port:          d.Port,
		UUID:          d.UUID,
		RegisterEvent: d.RegisterEvent,
	}
}

// InspectorSettings returns the inspected instance's settings at launch.
func (d Descriptor) InspectorSettings() json.RawMessage {
	if d.Inspector == nil {
		return nil
	}
	return d.Inspector.Payload.Settings
}
