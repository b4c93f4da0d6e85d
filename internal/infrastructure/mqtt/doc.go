// Package mqtt publishes deck button presses to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Press publishing on <topic_prefix>/<action path>
//   - A retained online/offline status with Last Will and Testament
//
// The HTTP webhook stays the primary press channel; MQTT is an additional,
// optional publisher enabled with mqtt.enabled in the configuration.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishPress("actions/mirabox/button-1", body)
package mqtt
