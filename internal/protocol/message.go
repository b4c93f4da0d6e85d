package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is a frame exchanged with the host application.
//
// Inbound frames carry a raw payload so handlers can decode the shape they
// expect. Context identifies the control instance (absent for global
// events); Action is the control's declared type.
type Message struct {
	Event   string          `json:"event"`
	Context string          `json:"context,omitempty"`
	Action  string          `json:"action,omitempty"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Parse decodes a text frame into a Message.
// A frame without an event name is rejected.
func Parse(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding frame: %w", err)
	}
	if msg.Event == "" {
		return Message{}, fmt.Errorf("decoding frame: missing event")
	}
	return msg, nil
}

// Clone returns a deep copy so the payload can be retained or mutated
// without affecting the original.
func (m Message) Clone() Message {
	c := m
	if m.Payload != nil {
		c.Payload = append(json.RawMessage(nil), m.Payload...)
	}
	return c
}

// IsInstance reports whether the message belongs to the instance family.
func (m Message) IsInstance() bool {
	return m.Action != ""
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Event, err)
	}
	return nil
}

// Frame is an outbound message. Payload is marshalled as-is.
type Frame struct {
	Event   string `json:"event"`
	Context string `json:"context,omitempty"`
	Action  string `json:"action,omitempty"`
	Device  string `json:"device,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// Registration is the handshake frame identifying this process to the host.
type Registration struct {
	Event string `json:"event"`
	UUID  string `json:"uuid"`
}

// TargetBoth addresses hardware and software renderings of a key.
const TargetBoth = 0

// ImagePayload is the payload of setImage.
type ImagePayload struct {
	Image  string `json:"image"`
	Target int    `json:"target"`
}

// TitlePayload is the payload of setTitle.
type TitlePayload struct {
	Title  string `json:"title"`
	Target int    `json:"target"`
}

// StatePayload is the payload of setState.
type StatePayload struct {
	State int `json:"state"`
}

// URLPayload is the payload of openUrl.
type URLPayload struct {
	URL string `json:"url"`
}

// BackgroundPayload is the payload of setBackground and stopBackground.
type BackgroundPayload struct {
	Image     string `json:"image,omitempty"`
	ClearIcon bool   `json:"clearIcon"`
}

// Coordinates locates a key on the device grid.
type Coordinates struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// TitleParameters describes how the host renders a key title.
type TitleParameters struct {
	FontFamily     string `json:"fontFamily,omitempty"`
	FontSize       int    `json:"fontSize,omitempty"`
	FontStyle      string `json:"fontStyle,omitempty"`
	FontUnderline  bool   `json:"fontUnderline,omitempty"`
	ShowTitle      bool   `json:"showTitle,omitempty"`
	TitleAlignment string `json:"titleAlignment,omitempty"`
	TitleColor     string `json:"titleColor,omitempty"`
}

// InstancePayload is the common payload of instance lifecycle and
// interaction events.
type InstancePayload struct {
	Settings        json.RawMessage  `json:"settings,omitempty"`
	Coordinates     *Coordinates     `json:"coordinates,omitempty"`
	State           int              `json:"state,omitempty"`
	Title           string           `json:"title,omitempty"`
	TitleParameters *TitleParameters `json:"titleParameters,omitempty"`
	IsInMultiAction bool             `json:"isInMultiAction,omitempty"`
}

// GlobalSettingsPayload is the payload of didReceiveGlobalSettings.
type GlobalSettingsPayload struct {
	Settings json.RawMessage `json:"settings"`
}
