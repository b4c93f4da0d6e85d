package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
plugin:
  base_dir: "/opt/plugin"
queue:
  flush_interval: 3s
button:
  content_file: "/tmp/text.md"
  poll_interval: 1500ms
  retry_delays: [250ms, 1s]
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Plugin.BaseDir != "/opt/plugin" {
		t.Errorf("Plugin.BaseDir = %q, want %q", cfg.Plugin.BaseDir, "/opt/plugin")
	}

	if cfg.Queue.FlushInterval != 3*time.Second {
		t.Errorf("Queue.FlushInterval = %v, want 3s", cfg.Queue.FlushInterval)
	}

	if cfg.Button.PollInterval != 1500*time.Millisecond {
		t.Errorf("Button.PollInterval = %v, want 1.5s", cfg.Button.PollInterval)
	}

	if len(cfg.Button.RetryDelays) != 2 || cfg.Button.RetryDelays[0] != 250*time.Millisecond {
		t.Errorf("Button.RetryDelays = %v, want [250ms 1s]", cfg.Button.RetryDelays)
	}

	if cfg.MQTT.Broker.ClientID != "test-client" {
		t.Errorf("MQTT.Broker.ClientID = %q, want %q", cfg.MQTT.Broker.ClientID, "test-client")
	}

	// Untouched sections keep their defaults
	if cfg.Button.Columns != 5 {
		t.Errorf("Button.Columns = %d, want default 5", cfg.Button.Columns)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Queue.FlushInterval != 5*time.Second {
		t.Errorf("Queue.FlushInterval = %v, want default 5s", cfg.Queue.FlushInterval)
	}
}

func TestLoadOrDefault_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadOrDefault(configPath); err == nil {
		t.Error("LoadOrDefault() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
button:
  action_name: ""
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty button.action_name, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "zero flush interval",
			mutate:  func(c *Config) { c.Queue.FlushInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			mutate:  func(c *Config) { c.Button.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero columns",
			mutate:  func(c *Config) { c.Button.Columns = 0 },
			wantErr: true,
		},
		{
			name: "companion port out of range",
			mutate: func(c *Config) {
				c.Companion.Enabled = true
				c.Companion.Port = 70000
			},
			wantErr: true,
		},
		{
			name:    "disabled companion ignores port",
			mutate:  func(c *Config) { c.Companion.Port = 0 },
			wantErr: false,
		},
		{
			name: "mqtt invalid qos",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = ""
			},
			wantErr: true,
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: true,
		},
		{
			name:    "negative journal retention",
			mutate:  func(c *Config) { c.Database.JournalRetention = -time.Hour },
			wantErr: true,
		},
		{
			name:    "file logging without path",
			mutate:  func(c *Config) { c.Logging.Output = "file" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("GRAYDECK_DATABASE_PATH", "/custom/path.db")
	t.Setenv("GRAYDECK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GRAYDECK_MQTT_USERNAME", "testuser")
	t.Setenv("GRAYDECK_MQTT_PASSWORD", "testpass")
	t.Setenv("GRAYDECK_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("GRAYDECK_COMPANION_ENABLED", "true")
	t.Setenv("GRAYDECK_COMPANION_PORT", "9123")
	t.Setenv("GRAYDECK_BUTTON_CONTENT_FILE", "/srv/text.md")

	applyEnvOverrides(cfg)

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if !cfg.Companion.Enabled {
		t.Error("Companion.Enabled = false, want true")
	}

	if cfg.Companion.Port != 9123 {
		t.Errorf("Companion.Port = %d, want 9123", cfg.Companion.Port)
	}

	if cfg.Button.ContentFile != "/srv/text.md" {
		t.Errorf("Button.ContentFile = %q, want %q", cfg.Button.ContentFile, "/srv/text.md")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Queue.FlushInterval != 5*time.Second {
		t.Errorf("defaultConfig Queue.FlushInterval = %v, want 5s", cfg.Queue.FlushInterval)
	}

	if cfg.Button.PollInterval != 2*time.Second {
		t.Errorf("defaultConfig Button.PollInterval = %v, want 2s", cfg.Button.PollInterval)
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.Companion.Enabled {
		t.Error("defaultConfig should leave the companion server disabled")
	}

	if cfg.Database.JournalRetention != 30*24*time.Hour {
		t.Errorf("defaultConfig Database.JournalRetention = %v, want 720h", cfg.Database.JournalRetention)
	}
}

func TestConfig_ActionID(t *testing.T) {
	cfg := defaultConfig()

	if got := cfg.ActionID("com.example.deck"); got != "com.example.deck.mqttButton" {
		t.Errorf("ActionID() = %q, want %q", got, "com.example.deck.mqttButton")
	}

	if got := cfg.ActionID(""); got != "pro.popstas.mqtt.mqttButton" {
		t.Errorf("ActionID(\"\") = %q, want fallback UUID", got)
	}
}
