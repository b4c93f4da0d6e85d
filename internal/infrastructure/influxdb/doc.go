// Package influxdb records deck telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes, and health monitoring.
//
// # Measurements
//
//   - button_press: tags publisher, button; fields success, duration_ms
//   - key_image: tags action; fields lines, bytes
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePress("http", 1, true, took)
//
// # Error Handling
//
// Writes are non-blocking; batch failures are delivered to the SetOnError
// callback. Connection and health check errors are returned directly.
package influxdb
