package plugin

import (
	"errors"
	"fmt"
)

// ErrParse is returned by Dispatch for frames that are not valid messages.
// The frame is dropped and no state changes.
var ErrParse = errors.New("plugin: unparseable frame")

// HandlerError describes a handler that returned an error or panicked.
// It never stops the remaining handlers or built-in reactions.
type HandlerError struct {
	// Event is the event being dispatched.
	Event string
	// Context is the instance context, empty for global events.
	Context string
	// Handler names the failing handler: "global", an action id, or
	// "builtin".
	Handler string
	// Panic holds the recovered value when the handler panicked.
	Panic any
	Err   error
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %s for %s panicked: %v", e.Handler, e.Event, e.Panic)
	}
	return fmt.Sprintf("handler %s for %s: %v", e.Handler, e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
