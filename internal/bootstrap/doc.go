// Package bootstrap parses the launch arguments the host application
// passes to a plugin process.
//
// The host supplies the local WebSocket port, the instance identifier used
// in the handshake, the handshake event name, a JSON metadata object and,
// for property inspectors only, a fifth JSON object describing the
// inspected action. The presence of that fifth value selects inspector
// mode. Both the flag form (-port 1234 ...) and the bare positional form
// are accepted.
package bootstrap
