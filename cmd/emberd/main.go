// Ember Core - Home Automation Gateway
//
// This is the main entry point for the Ember Core gateway daemon. It
// wires the adapter/device lifecycle manager to its infrastructure
// (SQLite persistence, optional MQTT broker, optional InfluxDB
// telemetry) and serves the HTTP/WebSocket API to consumers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/emberhome/ember-core/migrations"

	"github.com/emberhome/ember-core/internal/adapters"
	"github.com/emberhome/ember-core/internal/api"
	"github.com/emberhome/ember-core/internal/infrastructure/config"
	"github.com/emberhome/ember-core/internal/infrastructure/database"
	"github.com/emberhome/ember-core/internal/infrastructure/logging"
	"github.com/emberhome/ember-core/internal/infrastructure/mqtt"
	"github.com/emberhome/ember-core/internal/infrastructure/tsdb"
	"github.com/emberhome/ember-core/internal/manager"
	"github.com/emberhome/ember-core/internal/thing"
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

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Ember Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise the lifecycle manager from the persisted registry
	mgr := manager.New(manager.NewSQLiteStore(db.DB))
	mgr.SetLogger(log)
	defer func() {
		log.Info("closing lifecycle manager")
		if closeErr := mgr.Close(); closeErr != nil {
			log.Error("error closing manager", "error", closeErr)
		}
	}()

	if refreshErr := mgr.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading thing registry: %w", refreshErr)
	}
	log.Info("thing registry initialised", "things", mgr.GetStats().Things)

	// Connect to MQTT broker (optional; required for the MQTT adapter)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional telemetry sink)
	var influxClient *tsdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = tsdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Load the configured adapters. A failing adapter is logged and
	// skipped; the gateway runs with whatever loaded.
	adapterDeps := adapters.Deps{Registry: mgr, Logger: log}
	if mqttClient != nil {
		adapterDeps.MQTTClient = mqttClient
	}
	loaded := adapters.Load(cfg.Adapters, mgr, adapterDeps)
	log.Info("adapters loaded", "count", loaded)

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Pairing:  cfg.Pairing,
		Logger:   log,
		Manager:  mgr,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Background pumps
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pumpTelemetry(gctx, mgr, influxClient)
	})

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	if waitErr := g.Wait(); waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		log.Error("background pump error", "error", waitErr)
	}

	log.Info("Ember Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EMBER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EMBER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// pumpTelemetry forwards numeric property changes to the time-series
// database. It runs until the context is cancelled or the event bus
// shuts down. With telemetry disabled it still drains its subscription
// so the bus never backs up on it.
func pumpTelemetry(ctx context.Context, mgr *manager.Manager, influx *tsdb.Client) error {
	id, events := mgr.Subscribe()
	defer mgr.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != manager.EventPropertyChanged || influx == nil {
				continue
			}
			if v, numeric := thing.NumericValue(ev.Value); numeric {
				influx.WritePropertySample(ev.ThingID, ev.Property, v)
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *tsdb.Client, apiServer *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
