// Package transport owns the single WebSocket connection between this
// process and the host application.
//
// The connection descriptor (port, instance uuid, registration event) comes
// from the launch arguments. Without a valid descriptor the transport is
// permanently unavailable and every send fails with ErrUnavailable, which
// lets the process run standalone during development.
//
// # Lifecycle
//
//	idle → connecting → open → closed
//
// The registration frame is always the first frame written. Closed is
// terminal: the host relaunches the process when it wants a new connection.
//
// Callbacks (OnOpen, OnMessage, OnError, OnClose) run on the reader
// goroutine. The plugin runtime forwards them into its logic loop.
package transport
