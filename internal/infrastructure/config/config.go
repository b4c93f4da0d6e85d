package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Deck.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Plugin    PluginConfig    `yaml:"plugin"`
	Queue     QueueConfig     `yaml:"queue"`
	Button    ButtonConfig    `yaml:"button"`
	Companion CompanionConfig `yaml:"companion"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PluginConfig contains plugin identity and asset settings.
type PluginConfig struct {
	// UUID is used when the host does not supply plugin metadata
	// (development mode).
	UUID string `yaml:"uuid"`

	// BaseDir is the directory relative image paths are resolved against.
	BaseDir string `yaml:"base_dir"`

	// DefaultImage is the fallback asset used when an image source cannot
	// be loaded. Empty disables the fallback.
	DefaultImage string `yaml:"default_image"`

	// ConnectTimeout bounds the WebSocket handshake with the host.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// QueueConfig contains outbound image queue settings.
type QueueConfig struct {
	// FlushInterval is the safety-net period for draining pending images.
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// ButtonConfig contains settings for the content button action.
type ButtonConfig struct {
	// ActionName is appended to the plugin UUID to form the action ID.
	ActionName string `yaml:"action_name"`

	// ContentFile is the side-channel text file rendered onto the key.
	ContentFile string `yaml:"content_file"`

	// ContentPrefix marks a header line that is not rendered.
	ContentPrefix string `yaml:"content_prefix"`

	// PollInterval is how often the content file is re-read.
	PollInterval time.Duration `yaml:"poll_interval"`

	// RetryDelays are the extra render attempts after an instance appears.
	RetryDelays []time.Duration `yaml:"retry_delays"`

	// Columns is the key grid width used to derive a button index from
	// coordinates.
	Columns int `yaml:"columns"`

	HTTP ButtonHTTPConfig `yaml:"http"`
}

// ButtonHTTPConfig contains the press webhook settings.
type ButtonHTTPConfig struct {
	DefaultURL string        `yaml:"default_url"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// CompanionConfig contains the development companion HTTP server settings.
type CompanionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	// BaseDir is the root that save-svg paths are written under.
	BaseDir string `yaml:"base_dir"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite settings for the press journal.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// JournalRetention prunes older press entries at startup; 0 keeps all.
	JournalRetention time.Duration `yaml:"journal_retention"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Used when output is "file"; the host application owns the plugin's stdio.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYDECK_SECTION_KEY
// For example: GRAYDECK_MQTT_HOST, GRAYDECK_COMPANION_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults (plus
// environment overrides) when the file does not exist. The host launches
// plugins with its own arguments, so a config file is optional.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg = defaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Plugin: PluginConfig{
			UUID:           "pro.popstas.mqtt",
			BaseDir:        ".",
			DefaultImage:   "images/default.png",
			ConnectTimeout: 5 * time.Second,
		},
		Queue: QueueConfig{
			FlushInterval: 5 * time.Second,
		},
		Button: ButtonConfig{
			ActionName:    "mqttButton",
			ContentFile:   "text.md",
			ContentPrefix: "button content:",
			PollInterval:  2 * time.Second,
			RetryDelays:   []time.Duration{500 * time.Millisecond, 2 * time.Second},
			Columns:       5,
			HTTP: ButtonHTTPConfig{
				DefaultURL: "https://test.home.popstas.ru/node-red-request.php",
				BaseURL:    "https://test.home.popstas.ru",
				Timeout:    10 * time.Second,
			},
		},
		Companion: CompanionConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    5173,
			BaseDir: ".",
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graydeck",
			},
			QoS:         1,
			TopicPrefix: "graylogic/deck",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 10,
		},
		Database: DatabaseConfig{
			Enabled:     false,
			Path:        "./data/graydeck.db",
			WALMode:     true,
			BusyTimeout: 5,

			JournalRetention: 30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYDECK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Plugin
	if v := os.Getenv("GRAYDECK_PLUGIN_BASE_DIR"); v != "" {
		cfg.Plugin.BaseDir = v
	}

	// Button
	if v := os.Getenv("GRAYDECK_BUTTON_CONTENT_FILE"); v != "" {
		cfg.Button.ContentFile = v
	}
	if v := os.Getenv("GRAYDECK_BUTTON_DEFAULT_URL"); v != "" {
		cfg.Button.HTTP.DefaultURL = v
	}

	// Companion
	if v := os.Getenv("GRAYDECK_COMPANION_ENABLED"); v != "" {
		cfg.Companion.Enabled = parseBool(v, cfg.Companion.Enabled)
	}
	if v := os.Getenv("GRAYDECK_COMPANION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Companion.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("GRAYDECK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYDECK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYDECK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYDECK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Database
	if v := os.Getenv("GRAYDECK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Logging
	if v := os.Getenv("GRAYDECK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Queue.FlushInterval <= 0 {
		errs = append(errs, "queue.flush_interval must be positive")
	}

	if c.Button.ActionName == "" {
		errs = append(errs, "button.action_name is required")
	}
	if c.Button.PollInterval <= 0 {
		errs = append(errs, "button.poll_interval must be positive")
	}
	if c.Button.Columns < 1 {
		errs = append(errs, "button.columns must be at least 1")
	}

	if c.Companion.Enabled && (c.Companion.Port < 1 || c.Companion.Port > 65535) {
		errs = append(errs, "companion.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled {
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.JournalRetention < 0 {
		errs = append(errs, "database.journal_retention must not be negative")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ActionID returns the full action identifier for the content button.
func (c *Config) ActionID(pluginUUID string) string {
	if pluginUUID == "" {
		pluginUUID = c.Plugin.UUID
	}
	return pluginUUID + "." + c.Button.ActionName
}
