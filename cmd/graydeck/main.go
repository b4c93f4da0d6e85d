// Gray Logic Deck - key plugin for stream-deck style controllers
//
// The host application launches this binary once per plugin and once per
// open property inspector, passing the connection descriptor as arguments.
// In plugin mode it renders a text file onto keys and delivers key presses
// to a webhook and, when configured, an MQTT broker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-deck/migrations"

	"github.com/nerrad567/gray-logic-deck/internal/bootstrap"
	"github.com/nerrad567/gray-logic-deck/internal/button"
	"github.com/nerrad567/gray-logic-deck/internal/companion"
	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-deck/internal/inspector"
	"github.com/nerrad567/gray-logic-deck/internal/journal"
	"github.com/nerrad567/gray-logic-deck/internal/metrics"
	"github.com/nerrad567/gray-logic-deck/internal/plugin"
	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Launch arguments without the program name
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string) error {
	log := logging.Default()

	configPath := getConfigPath()
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting Gray Logic Deck",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	desc, err := bootstrap.Parse(args)
	if err != nil {
		log.Warn("launch arguments incomplete, running standalone", "error", err)
	}

	if desc.Mode() == bootstrap.ModeInspector {
		return runInspector(ctx, cfg, desc, log)
	}
	return runPlugin(ctx, cfg, desc, log)
}

// runPlugin wires the runtime, the content button and the optional
// infrastructure, then runs the logic loop until shutdown.
func runPlugin(ctx context.Context, cfg *config.Config, desc bootstrap.Descriptor, log *logging.Logger) error {
	m := metrics.New()

	transportCfg := desc.TransportConfig()
	transportCfg.HandshakeTimeout = cfg.Plugin.ConnectTimeout

	rt := plugin.New(plugin.Config{
		PluginUUID:    desc.PluginUUID(cfg.Plugin.UUID),
		Transport:     transportCfg,
		BaseDir:       cfg.Plugin.BaseDir,
		DefaultImage:  cfg.Plugin.DefaultImage,
		FlushInterval: cfg.Queue.FlushInterval,
		ExitOnClose:   desc.Valid(),
		Logger:        log,
		Metrics:       m,
	})
	if !desc.Valid() {
		log.Info("no host descriptor, plugin running standalone")
	}

	deps := button.Deps{
		Runtime:      rt,
		Config:       cfg.Button,
		BaseDir:      cfg.Plugin.BaseDir,
		DefaultImage: cfg.Plugin.DefaultImage,
		Logger:       log.With("component", "button"),
	}
	checks := make(map[string]companion.HealthChecker)

	if mqttClient := connectMQTT(cfg, log); mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		deps.Publishers = append(deps.Publishers, button.NewMQTTPublisher(mqttClient))
		checks["mqtt"] = mqttClient
	}

	if influxClient := connectInfluxDB(cfg, log); influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		deps.Telemetry = influxClient
		checks["influxdb"] = influxClient
	}

	var repo journal.Repository
	if db := openJournal(ctx, cfg, log); db != nil {
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()
		sqliteRepo := journal.NewSQLiteRepository(db.DB)
		pruneJournal(ctx, sqliteRepo, cfg.Database.JournalRetention, log)
		repo = sqliteRepo
		deps.Journal = sqliteRepo
		checks["database"] = db
	}

	btn := button.New(deps)
	stop := btn.Register(ctx)
	defer stop()

	if cfg.Companion.Enabled {
		srv, err := companion.New(companion.Deps{
			Config:  cfg.Companion,
			Logger:  log.With("component", "companion"),
			Metrics: m,
			Journal: repo,
			Checks:  checks,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating companion server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			log.Warn("companion server not started", "error", err)
		} else {
			defer func() {
				if closeErr := srv.Close(); closeErr != nil {
					log.Error("error closing companion server", "error", closeErr)
				}
			}()
		}
	}

	log.Info("plugin running", "action", btn.ActionID())

	runErr := rt.Run(ctx)

	log.Info("waiting for in-flight presses")
	btn.Wait()

	if runErr != nil {
		return fmt.Errorf("plugin runtime: %w", runErr)
	}
	log.Info("Gray Logic Deck stopped")
	return nil
}

// connectMQTT connects the optional press publisher. A broker that cannot
// be reached is logged and skipped.
func connectMQTT(cfg *config.Config, log *logging.Logger) *mqtt.Client {
	if !cfg.MQTT.Enabled {
		return nil
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, presses go to the webhook only", "error", err)
		return nil
	}
	client.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client
}

// connectInfluxDB connects the optional telemetry sink.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) *influxdb.Client {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if errors.Is(err, influxdb.ErrDisabled) {
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, telemetry disabled", "error", err)
		return nil
	}
	client.SetOnError(func(err error) {
		log.Warn("InfluxDB write failed", "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	return client
}

// openJournal opens and migrates the press journal database.
func openJournal(ctx context.Context, cfg *config.Config, log *logging.Logger) *database.DB {
	if !cfg.Database.Enabled {
		return nil
	}

	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		log.Warn("press journal unavailable", "path", cfg.Database.Path, "error", err)
		return nil
	}
	if err := db.Migrate(ctx); err != nil {
		log.Warn("press journal migrations failed", "error", err)
		db.Close() //nolint:errcheck // Journal is abandoned
		return nil
	}
	log.Info("press journal ready", "path", cfg.Database.Path)
	return db
}

// pruneJournal drops entries older than retention.
func pruneJournal(ctx context.Context, repo journal.Repository, retention time.Duration, log *logging.Logger) {
	if retention <= 0 {
		return
	}
	n, err := repo.Prune(ctx, time.Now().Add(-retention))
	if err != nil {
		log.Warn("pruning press journal failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("press journal pruned", "removed", n, "retention", retention)
	}
}

// runInspector runs the property inspector process for one instance.
func runInspector(ctx context.Context, cfg *config.Config, desc bootstrap.Descriptor, log *logging.Logger) error {
	transportCfg := desc.TransportConfig()
	transportCfg.HandshakeTimeout = cfg.Plugin.ConnectTimeout

	insp := inspector.New(inspector.Config{
		Transport: transportCfg,
		Action:    desc.Inspector.Action,
		Context:   desc.Inspector.Context,
		Settings:  desc.InspectorSettings(),
		Logger:    log.With("component", "inspector"),
	})
	insp.On(plugin.Handlers{
		protocol.EventDidReceiveSettings: func(msg protocol.Message) error {
			log.Debug("inspector settings received", "context", msg.Context, "bytes", len(msg.Payload))
			return nil
		},
		protocol.EventSendToPropertyInspector: func(msg protocol.Message) error {
			log.Debug("message from plugin", "bytes", len(msg.Payload))
			return nil
		},
	})

	if err := insp.Run(ctx); err != nil {
		return fmt.Errorf("property inspector: %w", err)
	}
	log.Info("property inspector stopped")
	return nil
}

// getConfigPath returns the config path from GRAYDECK_CONFIG or the default.
func getConfigPath() string {
	if path := os.Getenv("GRAYDECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
