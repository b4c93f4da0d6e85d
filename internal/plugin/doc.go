// Package plugin is the plugin-mode process root.
//
// A Runtime connects to the host application, keeps the process store
// (global settings, devices, user info) and the action registry in step
// with inbound events, and routes every event to subscribed handlers.
//
// # Concurrency
//
// All plugin logic runs on one goroutine: Runtime.Run. The transport
// reader, the timer worker and background image work hand their results
// to the loop with Post, so handlers, built-in reactions and interval
// callbacks observe a consistent view without locking.
//
// # Dispatch order
//
//	global event:   subscribed handlers (registration order) → built-in
//	instance event: per matching subscription, built-in → handler
//
// Handlers receive deep copies of the message. A failing or panicking
// handler is logged and counted as a HandlerError; it never prevents the
// remaining handlers or built-ins from running.
//
// # Usage
//
//	rt := plugin.New(plugin.Config{PluginUUID: uuid, Transport: desc})
//	rt.Dispatcher().Actions(rt.ActionID("mqttButton"), plugin.Handlers{
//	    protocol.EventKeyUp: func(msg protocol.Message) error { ... },
//	})
//	err := rt.Run(ctx)
package plugin
