// EnvCloud Core - Environmental Telemetry Platform
//
// This is the main entry point for the EnvCloud Core application.
// EnvCloud ingests measurements from field sensors (air quality poles,
// water tank monitors), stores them append-only, and serves live
// dashboards over REST and WebSocket:
//   - Self-service device registration with automatic location grouping
//   - HTTP and MQTT ingestion paths feeding one pipeline
//   - Per-location real-time broadcast with freshness-derived status
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/envcloud/envcloud-core/migrations"

	"github.com/envcloud/envcloud-core/internal/api"
	"github.com/envcloud/envcloud-core/internal/auth"
	"github.com/envcloud/envcloud-core/internal/bridges/mqttingest"
	"github.com/envcloud/envcloud-core/internal/device"
	"github.com/envcloud/envcloud-core/internal/hub"
	"github.com/envcloud/envcloud-core/internal/infrastructure/config"
	"github.com/envcloud/envcloud-core/internal/infrastructure/database"
	"github.com/envcloud/envcloud-core/internal/infrastructure/influxdb"
	"github.com/envcloud/envcloud-core/internal/infrastructure/logging"
	"github.com/envcloud/envcloud-core/internal/infrastructure/mqtt"
	"github.com/envcloud/envcloud-core/internal/ingest"
	"github.com/envcloud/envcloud-core/internal/location"
	"github.com/envcloud/envcloud-core/internal/registration"
	"github.com/envcloud/envcloud-core/internal/telemetry"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting EnvCloud Core",
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

	// Repositories over the shared connection
	users := auth.NewUserRepository(db.DB)
	locations := location.NewSQLiteRepository(db.DB)
	devices := device.NewSQLiteRepository(db.DB)
	store := telemetry.NewSQLiteStore(db.DB)

	// Live broadcast hub, one topic per location
	liveHub := hub.New()
	liveHub.SetLogger(log)

	// Registration and ingestion services
	regSvc := registration.NewService(locations, devices)
	regSvc.SetLogger(log)

	ingestSvc := ingest.NewService(devices, locations, store)
	ingestSvc.SetLogger(log)
	ingestSvc.SetPublisher(liveHub)

	// Connect to InfluxDB mirror (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB mirror disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		ingestSvc.SetMirror(influxClient)
		log.Info("InfluxDB mirror connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Connect to MQTT broker and start the ingest bridge (optional)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		bridge := mqttingest.New(mqttClient, ingestSvc)
		bridge.SetLogger(log)
		if startErr := bridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT ingest bridge: %w", startErr)
		}
	} else {
		log.Info("MQTT ingest bridge disabled")
	}

	// Freshness tracking and chart aggregation read models
	tracker := telemetry.NewTracker(store,
		time.Duration(cfg.Freshness.LocationThreshold)*time.Second,
		time.Duration(cfg.Freshness.DeviceThreshold)*time.Second,
	)
	aggregator := telemetry.NewAggregator(store, cfg.Aggregation.ChartWindow)

	// Start the API server
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		WS:           cfg.WebSocket,
		Security:     cfg.Security,
		Logger:       log,
		Users:        users,
		Locations:    locations,
		Devices:      devices,
		Store:        store,
		Registration: regSvc,
		Ingest:       ingestSvc,
		Tracker:      tracker,
		Aggregator:   aggregator,
		Hub:          liveHub,
		Version:      version,
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

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, apiServer, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. Database

	log.Info("EnvCloud Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ENVCLOUD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ENVCLOUD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, apiServer *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
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

	return nil
}
