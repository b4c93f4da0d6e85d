package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// Instance is one placement of an action on a device.
//
// Action and Context are fixed at creation. Settings and title state are
// updated by the dispatcher's built-in reactions and read through copies.
type Instance struct {
	Action  string
	Context string

	deps *Deps

	mu              sync.RWMutex
	settings        json.RawMessage
	title           string
	titleParameters protocol.TitleParameters
}

// Settings returns a copy of the instance's persisted settings.
func (i *Instance) Settings() json.RawMessage {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.settings == nil {
		return nil
	}
	return append(json.RawMessage(nil), i.settings...)
}

// DecodeSettings unmarshals the settings into v. Empty settings leave v
// untouched.
func (i *Instance) DecodeSettings(v any) error {
	raw := i.Settings()
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding settings for %s: %w", i.Context, err)
	}
	return nil
}

// Title returns the last title reported by the host.
func (i *Instance) Title() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.title
}

// TitleParameters returns the last title parameters reported by the host.
func (i *Instance) TitleParameters() protocol.TitleParameters {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.titleParameters
}

// ApplySettings replaces the local settings without notifying the host.
func (i *Instance) ApplySettings(settings json.RawMessage) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if settings == nil {
		i.settings = nil
		return
	}
	i.settings = append(json.RawMessage(nil), settings...)
}

// ApplyTitle records the title state reported by the host.
func (i *Instance) ApplyTitle(title string, params *protocol.TitleParameters) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.title = title
	if params != nil {
		i.titleParameters = *params
	} else {
		i.titleParameters = protocol.TitleParameters{}
	}
}

// send writes a frame and logs failures; the error is returned unchanged.
func (i *Instance) send(frame protocol.Frame) error {
	if err := i.deps.Sender.Send(frame); err != nil {
		i.deps.Logger.Warn("action send failed", "event", frame.Event, "context", i.Context, "error", err)
		return err
	}
	return nil
}

// SendToPropertyInspector forwards payload to this instance's inspector.
func (i *Instance) SendToPropertyInspector(payload any) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventSendToPropertyInspector,
		Action:  i.Action,
		Context: i.Context,
		Payload: payload,
	})
}

// SetState switches the instance to a state index.
func (i *Instance) SetState(state int) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventSetState,
		Context: i.Context,
		Payload: protocol.StatePayload{State: state},
	})
}

// SetTitle sets the key title on hardware and software.
func (i *Instance) SetTitle(title string) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventSetTitle,
		Context: i.Context,
		Payload: protocol.TitlePayload{Title: title, Target: protocol.TargetBoth},
	})
}

// SetSettings replaces the settings locally and persists them on the host.
// The local value is updated even when the send fails.
func (i *Instance) SetSettings(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding settings for %s: %w", i.Context, err)
	}
	i.ApplySettings(raw)

	return i.send(protocol.Frame{
		Event:   protocol.EventSetSettings,
		Context: i.Context,
		Payload: json.RawMessage(raw),
	})
}

// OpenURL asks the host to open url in the default browser.
func (i *Instance) OpenURL(url string) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventOpenURL,
		Payload: protocol.URLPayload{URL: url},
	})
}

// RegisterScreenSaver claims screen-saver ownership for device.
func (i *Instance) RegisterScreenSaver(device string) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventRegisterScreenSaver,
		Context: i.Context,
		Device:  device,
	})
}

// UnregisterScreenSaver releases screen-saver ownership for device.
func (i *Instance) UnregisterScreenSaver(device string) error {
	return i.send(protocol.Frame{
		Event:   protocol.EventUnregisterScreenSaver,
		Context: i.Context,
		Device:  device,
	})
}

// SetImage displays src on the key.
//
// Data URIs are delivered synchronously. Any other source is loaded and
// rasterised on a separate goroutine. When the transport is not open, or
// the send fails, the resulting data URI is appended to the outbound queue.
// A source that cannot be loaded falls back to the default image.
//
// Returns:
//   - <-chan error: Receives exactly one value and is then closed: nil when
//     sent, ErrQueued when deferred, or the load error
func (i *Instance) SetImage(ctx context.Context, src string) <-chan error {
	result := make(chan error, 1)

	if IsDataURI(src) {
		result <- i.deliverImage(src)
		close(result)
		return result
	}

	go func() {
		defer close(result)

		image, err := i.deps.Images.Load(ctx, src)
		if err != nil {
			i.deps.Logger.Warn("image load failed", "context", i.Context, "source", src, "error", err)

			fallback := i.deps.DefaultImage
			if fallback == "" || fallback == src {
				result <- err
				return
			}
			image, err = i.deps.Images.Load(ctx, fallback)
			if err != nil {
				i.deps.Logger.Warn("default image load failed", "context", i.Context, "source", fallback, "error", err)
				result <- err
				return
			}
		}

		result <- i.deliverImage(image)
	}()

	return result
}

// deliverImage sends a data URI or queues it for the next flush.
func (i *Instance) deliverImage(image string) error {
	frame := protocol.Frame{
		Event:   protocol.EventSetImage,
		Context: i.Context,
		Payload: protocol.ImagePayload{Image: image, Target: protocol.TargetBoth},
	}

	if !i.deps.Sender.IsOpen() {
		i.deps.Queue.Enqueue(i.Context, image)
		i.deps.Logger.Debug("transport not open, image queued", "context", i.Context, "bytes", len(image))
		return ErrQueued
	}

	if err := i.deps.Sender.Send(frame); err != nil {
		i.deps.Queue.Enqueue(i.Context, image)
		i.deps.Logger.Warn("image send failed, queued for retry", "context", i.Context, "error", err)
		return errors.Join(ErrQueued, err)
	}
	return nil
}
