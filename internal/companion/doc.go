// Package companion provides the development HTTP endpoint that runs next
// to the plugin.
//
// It is disabled by default. When enabled it serves:
//
//	POST /api/save-svg      write {svg, path} under the configured base directory
//	GET  /api/presses       page through the press journal
//	GET  /api/presses/{id}  fetch one journal entry
//	GET  /health            component health
//	GET  /metrics           Prometheus exposition
//
// The server follows the same lifecycle as the other components:
//
//	srv, err := companion.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package companion
