// Package inspector is the property-inspector-mode process root.
//
// An inspector edits the settings of one action instance. It starts from
// the settings the host passed at launch, persists local edits with
// setSettings, and adopts settings pushed by the host (didReceiveSettings)
// without echoing them back.
package inspector
