package transport

import "errors"

// Domain-specific errors for transport operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnavailable is returned when no connection descriptor was supplied
	// (development/standalone mode). It never changes for the process.
	ErrUnavailable = errors.New("transport: unavailable")

	// ErrNotReady is returned when the connection exists but is not OPEN.
	// Callers decide whether to queue or retry.
	ErrNotReady = errors.New("transport: not ready")

	// ErrConnectFailed is reported through OnError when the dial or the
	// registration handshake fails.
	ErrConnectFailed = errors.New("transport: connection failed")

	// ErrSendFailed is returned when writing an OPEN connection fails.
	ErrSendFailed = errors.New("transport: send failed")

	// ErrEncode is returned when an outbound value cannot be marshalled.
	ErrEncode = errors.New("transport: encode failed")
)
