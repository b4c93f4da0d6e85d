// Package config handles loading and validating Gray Logic Deck configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The host application launches the plugin with its own connection
// arguments and no knowledge of this file, so LoadOrDefault treats a
// missing file as "run on defaults".
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.LoadOrDefault("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Button.ContentFile)
package config
