package plugin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
	"github.com/nerrad567/gray-logic-deck/internal/transport"
)

// send writes a plugin-level frame, logging failures.
func (r *Runtime) send(frame protocol.Frame) error {
	err := r.Send(frame)
	switch {
	case err == nil:
	case errors.Is(err, transport.ErrUnavailable):
		r.logger.Debug("no transport, frame dropped", "event", frame.Event)
	default:
		r.logger.Warn("frame send failed", "event", frame.Event, "error", err)
	}
	return err
}

// SetGlobalSettings persists v as the plugin's global settings. The local
// copy is replaced even when the host cannot be reached.
func (r *Runtime) SetGlobalSettings(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding global settings: %w", err)
	}

	sendErr := r.send(protocol.Frame{
		Event:   protocol.EventSetGlobalSettings,
		Context: r.cfg.Transport.UUID,
		Payload: json.RawMessage(raw),
	})
	if errors.Is(sendErr, transport.ErrUnavailable) {
		r.logger.Warn("host not available, setting local global settings only")
	}

	r.store.setGlobalSettings(raw)
	return sendErr
}

// GetGlobalSettings asks the host to send didReceiveGlobalSettings.
func (r *Runtime) GetGlobalSettings() error {
	return r.send(protocol.Frame{
		Event:   protocol.EventGetGlobalSettings,
		Context: r.cfg.Transport.UUID,
	})
}

// SetBackground shows image as the full-device background of device.
func (r *Runtime) SetBackground(image, device string, clearIcon bool) error {
	return r.send(protocol.Frame{
		Event:   protocol.EventSetBackground,
		Device:  device,
		Payload: protocol.BackgroundPayload{Image: image, ClearIcon: clearIcon},
	})
}

// StopBackground tells the host the background on device has ended and
// its icons should be restored.
func (r *Runtime) StopBackground(device string) error {
	return r.send(protocol.Frame{
		Event:   protocol.EventStopBackground,
		Device:  device,
		Payload: protocol.BackgroundPayload{ClearIcon: true},
	})
}

// GetUserInfo asks the host to send sendUserInfo.
func (r *Runtime) GetUserInfo() error {
	return r.send(protocol.Frame{Event: protocol.EventGetUserInfo})
}
