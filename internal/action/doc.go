// Package action tracks the action instances currently placed on the
// host's devices and implements the per-instance outbound operations.
//
// An instance is identified by its context, unique across the process.
// The registry is populated and pruned by the dispatcher's willAppear and
// willDisappear reactions; handlers look instances up to send titles,
// states, settings and images.
//
// # Images
//
// SetImage accepts data URIs, file paths (plugin-relative or absolute) and
// http(s) URLs. Non-inline sources are decoded (png, jpeg, gif, bmp, webp)
// and re-encoded as PNG data URIs. SVG files become SVG data URIs. Images
// that cannot be delivered are handed to the outbound queue.
package action
