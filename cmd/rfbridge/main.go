// rfbridge runs configured 433/315 MHz transmitters and receivers as a
// service: received codes go to MQTT, the SQLite history, InfluxDB and the
// websocket feed; codes are sent on MQTT command topics or over HTTP.
//
// The configuration file is configs/rfbridge.yaml unless RFTRX_CONFIG
// names another.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sparques/rftrx/internal/api"
	"github.com/sparques/rftrx/internal/backend"
	"github.com/sparques/rftrx/internal/bridge"
	"github.com/sparques/rftrx/internal/config"
	"github.com/sparques/rftrx/internal/history"
	"github.com/sparques/rftrx/internal/logging"
	"github.com/sparques/rftrx/internal/mqtt"
	"github.com/sparques/rftrx/internal/telemetry"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
)

const (
	defaultConfigPath = "configs/rfbridge.yaml"

	pruneInterval = time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring
	log := logging.Default()
	log.Info("starting rfbridge", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "devices", len(cfg.Devices))

	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix, Bridge: cfg.Bridge.ID}
	opts := bridge.Options{
		ID:           cfg.Bridge.ID,
		Topics:       topics,
		QoS:          byte(cfg.MQTT.QoS),
		PollInterval: cfg.PollInterval(),
		DedupeWindow: cfg.DedupeWindow(),
		Logger:       log.With("component", "bridge"),
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer func() {
			log.Info("closing history")
			if closeErr := store.Close(); closeErr != nil {
				log.Error("error closing history", "error", closeErr)
			}
		}()
		if err := store.HealthCheck(ctx); err != nil {
			return fmt.Errorf("history: %w", err)
		}
		log.Info("history opened", "path", store.Path(), "retention", cfg.History.Retention)
		opts.History = store
		if cfg.History.Retention > 0 {
			go pruneLoop(ctx, store, cfg.History.Retention, log)
		}
	}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, topics)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(log.With("component", "mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := client.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"status_topic", topics.Status(),
		)
		opts.MQTT = client
	} else {
		log.Info("MQTT disabled")
	}

	influx, err := telemetry.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, telemetry.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		influx.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		opts.Telemetry = influx
	}

	hub := api.NewHub(log.With("component", "websocket"))
	opts.Broadcaster = hub

	b := bridge.New(opts)
	opener := backend.NewOpener()
	defer func() {
		if closeErr := opener.Close(); closeErr != nil {
			log.Error("error releasing GPIO lines", "error", closeErr)
		}
	}()
	for _, dc := range cfg.Devices {
		dev, err := opener.Open(dc)
		if err != nil {
			return err
		}
		if err := b.AddDevice(dc.Name, dc.Role, dev); err != nil {
			return err
		}
	}
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.With("component", "api"),
			Bridge:  b,
			History: historyReader(opts.History),
			Hub:     hub,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// historyReader avoids handing the API a typed nil.
func historyReader(r bridge.Recorder) api.HistoryReader {
	if store, ok := r.(*history.Store); ok && store != nil {
		return store
	}
	return nil
}

func pruneLoop(ctx context.Context, store *history.Store, keep int, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		n, err := store.Prune(ctx, keep)
		if err != nil && ctx.Err() == nil {
			log.Error("history prune failed", "error", err)
		} else if n > 0 {
			log.Info("history pruned", "removed", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func getConfigPath() string {
	if path := os.Getenv("RFTRX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
