// Package protocol defines the JSON wire format spoken with the host
// application: inbound messages, outbound frames, payload shapes and the
// known event names.
//
// Every frame is a JSON text message of the form:
//
//	{"event": "...", "context": "...", "action": "...", "device": "...", "payload": {...}}
//
// The first outbound frame of a process is always the Registration
// handshake.
package protocol
