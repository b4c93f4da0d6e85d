package action

import "errors"

// Domain-specific errors for action operations.
var (
	// ErrAssetLoad is returned when an image source cannot be read or decoded.
	ErrAssetLoad = errors.New("action: asset load failed")

	// ErrQueued is delivered by SetImage when the image was deferred to the
	// outbound queue instead of being sent immediately.
	ErrQueued = errors.New("action: image queued")

	// ErrUnsupportedSource is returned for image sources that are neither a
	// data URI, a file path, nor an http(s) URL.
	ErrUnsupportedSource = errors.New("action: unsupported image source")
)
