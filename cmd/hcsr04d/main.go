// hcsr04d - HC-SR04 distance measurement daemon
//
// hcsr04d drives HC-SR04 ultrasonic rangefinders attached to GPIO lines
// and exposes measurements over a REST API, WebSocket stream and an
// optional MQTT bridge. Sensors can be declared in the config file or
// added and removed at runtime; each trigger/echo pair becomes a named
// measurement interface (distance_<trigger>_<echo>).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/softerra/linux-hc-sro4/internal/api"
	"github.com/softerra/linux-hc-sro4/internal/bridge"
	"github.com/softerra/linux-hc-sro4/internal/gpio"
	"github.com/softerra/linux-hc-sro4/internal/infrastructure/config"
	"github.com/softerra/linux-hc-sro4/internal/infrastructure/logging"
	"github.com/softerra/linux-hc-sro4/internal/infrastructure/mqtt"
	"github.com/softerra/linux-hc-sro4/internal/sensor"
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
	log.Info("starting hcsr04d",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the GPIO chip
	chip, err := gpio.OpenChip(cfg.GPIO.Chip, cfg.GPIO.Consumer)
	if err != nil {
		return fmt.Errorf("opening GPIO chip: %w", err)
	}
	defer func() {
		log.Info("closing GPIO chip")
		if closeErr := chip.Close(); closeErr != nil {
			log.Error("error closing GPIO chip", "error", closeErr)
		}
	}()
	log.Info("GPIO chip open", "chip", cfg.GPIO.Chip, "consumer", cfg.GPIO.Consumer)

	// Create the sensor registry
	registry := sensor.NewRegistry(chip, sensor.Options{
		SettleDelay: cfg.SettleDelay(),
		PulseWidth:  cfg.PulseWidth(),
	})
	registry.SetLogger(log)

	// Connect to MQTT broker and start the bridge (optional)
	var mqttClient *mqtt.Client
	var mqttBridge *bridge.Bridge
	if cfg.MQTT.Enabled {
		mqttClient, mqttBridge, err = startMQTT(ctx, cfg, registry, log)
		if err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		defer func() {
			log.Info("stopping MQTT bridge")
			mqttBridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	// The registry must close before the bridge stops so the retained
	// offline announcements made during shutdown still reach the broker.
	defer func() {
		log.Info("closing sensor registry")
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error closing sensor registry", "error", closeErr)
		}
	}()

	// Register sensors declared in the config. A bad entry is logged and
	// skipped so one miswired pair does not keep the daemon down.
	for _, sc := range cfg.Sensors {
		added, addErr := registry.Add(sensor.Config{
			Trigger: sc.Trigger,
			Echo:    sc.Echo,
			Timeout: time.Duration(sc.TimeoutMs) * time.Millisecond,
		})
		if addErr != nil {
			log.Error("skipping configured sensor",
				"trigger", sc.Trigger,
				"echo", sc.Echo,
				"error", addErr,
			)
			continue
		}
		log.Info("sensor registered", "sensor", added.Name())
	}

	// WebSocket hub, created here so measurement readings stream to
	// subscribed clients regardless of how the measurement was requested.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	registry.SetObserver(hub.BroadcastReading)

	// Start the REST API
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Registry:    registry,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	// Verify all connections are healthy
	if err := healthCheck(ctx, apiServer, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal",
		"sensors", registry.Len(),
	)

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server
	// 2. Sensor registry (waits out in-flight measurements)
	// 3. MQTT bridge (flushes retained offline statuses)
	// 4. MQTT client
	// 5. GPIO chip

	log.Info("hcsr04d stopped")
	return nil
}

// loadConfig reads the config file named by HCSR04_CONFIG or the default
// path. A missing file at the default path is not an error: the daemon
// starts with defaults and sensors are added over the API or MQTT.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	path := os.Getenv("HCSR04_CONFIG")
	if path != "" {
		return config.Load(path)
	}

	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("no config file found, using defaults", "path", defaultConfigPath)
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", "path", defaultConfigPath)
	return cfg, nil
}

// startMQTT connects to the broker and wires the measurement bridge to it.
func startMQTT(ctx context.Context, cfg *config.Config, registry *sensor.Registry, log *logging.Logger) (*mqtt.Client, *bridge.Bridge, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	b := bridge.New(client, registry, byte(cfg.MQTT.QoS))
	b.SetLogger(log)

	// Presence announcements flow through the bridge from here on.
	registry.SetNotifier(b)

	if err := b.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("starting bridge: %w", err)
	}
	log.Info("MQTT bridge started")

	return client, b, nil
}

// healthCheck verifies the infrastructure connections are healthy.
func healthCheck(ctx context.Context, apiServer *api.Server, mqttClient *mqtt.Client) error {
	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	return nil
}
