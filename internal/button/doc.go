// Package button implements the content button action.
//
// Each visible key renders the lines of a side-channel text file as an SVG
// image and re-reads the file on an interval. Pressing the key resolves a
// button index and target URL from the instance settings and delivers the
// press through every configured publisher: the HTTP webhook always, MQTT
// when a broker is connected. Every delivery is journalled and counted.
//
// # Lifecycle
//
//   - willAppear: render now, re-render at each retry delay (flushing the
//     image queue), then poll under the interval id text-md-watch-<context>
//   - willDisappear: stop polls and retries, emit stopBackground on the bus
//   - keyUp/touchTap: deliver a press
//   - sendToPlugin {"event":"setGlobalSettings","settings":...}: persist
//     global settings
package button
