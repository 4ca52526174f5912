package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/occupancy/internal/api"
	"github.com/your-org/occupancy/internal/api/ws"
	"github.com/your-org/occupancy/internal/config"
	"github.com/your-org/occupancy/internal/engine"
	"github.com/your-org/occupancy/internal/models"
	"github.com/your-org/occupancy/internal/observability"
	"github.com/your-org/occupancy/internal/queue"
	"github.com/your-org/occupancy/internal/storage"
	"github.com/your-org/occupancy/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.Default()
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting occupancy API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Seed the present-guest gauge from the registry
	present := models.StatusPresent
	if guests, err := db.ListGuests(context.Background(), &present); err == nil {
		observability.GuestsPresent.Set(float64(len(guests)))
	} else {
		slog.Warn("count present guests", "error", err)
	}

	// Connect to MinIO for enrollment photos
	var photos *storage.PhotoStore
	if cfg.MinIO.Endpoint != "" {
		photos, err = storage.NewPhotoStore(cfg.MinIO)
		if err != nil {
			slog.Error("connect to minio", "error", err)
			os.Exit(1)
		}
		if err := photos.EnsureBucket(context.Background()); err != nil {
			slog.Warn("ensure minio bucket", "error", err)
		}
	} else {
		slog.Info("minio not configured, photo retention disabled")
	}

	// Connect to NATS for the occupancy feed
	var producer *queue.Producer
	var consumer *queue.Consumer
	if cfg.NATS.URL != "" {
		producer, err = queue.NewProducer(cfg.NATS.URL)
		if err != nil {
			slog.Error("connect to nats", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		if err := producer.EnsureStream(context.Background()); err != nil {
			slog.Warn("ensure nats stream", "error", err)
		}

		consumer, err = queue.NewConsumer(cfg.NATS.URL)
		if err != nil {
			slog.Error("create occupancy consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
	} else {
		slog.Info("nats not configured, occupancy feed disabled")
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Relay committed transitions from the occupancy stream to WS clients
	if consumer != nil {
		err = consumer.ConsumeUpdates(ctx, "api-occupancy", func(ctx context.Context, msg jetstream.Msg) error {
			var update models.OccupancyUpdate
			if err := json.Unmarshal(msg.Data(), &update); err != nil {
				return err
			}

			evtType := "guest_checked_in"
			if update.Action == models.ActionCheckOut {
				evtType = "guest_checked_out"
			}

			hub.BroadcastUpdate(&dto.WSEvent{
				Type: evtType,
				Data: dto.OccupancyUpdateResponse{
					EventID:   update.EventID,
					GuestID:   update.GuestID,
					GuestName: update.GuestName,
					Action:    string(update.Action),
					Time:      update.Time.Format(time.RFC3339),
				},
			})
			return nil
		})
		if err != nil {
			slog.Warn("start occupancy consumer", "error", err)
		}
	}

	// Engine
	loc, err := time.LoadLocation(cfg.Stats.Timezone)
	if err != nil {
		slog.Error("load stats timezone", "zone", cfg.Stats.Timezone, "error", err)
		os.Exit(1)
	}
	matcher := engine.NewLinearMatcher(cfg.Matching.Threshold, cfg.Matching.Dimensions)
	controller := engine.NewController(db, matcher)
	aggregator := engine.NewAggregator(db, loc)

	// Setup router. EncodeFn stays nil unless a deployment wires an
	// external extractor; raw encoding payloads always work.
	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		Store:      db,
		Controller: controller,
		Aggregator: aggregator,
		Photos:     photos,
		Producer:   producer,
		Hub:        hub,
		DBPinger:   db,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
