package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/provant-erp/be-prs-dashboard/internal/client"
	"github.com/provant-erp/be-prs-dashboard/internal/config"
	"github.com/provant-erp/be-prs-dashboard/internal/database"
	"github.com/provant-erp/be-prs-dashboard/internal/feed"
	"github.com/provant-erp/be-prs-dashboard/internal/handler"
	"github.com/provant-erp/be-prs-dashboard/internal/logger"
	"github.com/provant-erp/be-prs-dashboard/internal/middleware"
	"github.com/provant-erp/be-prs-dashboard/internal/repository"
	"github.com/provant-erp/be-prs-dashboard/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Procurement Dashboard Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Optional event bus
	var nc *nats.Conn
	if cfg.NATS.Enabled {
		nc, err = client.Connect(cfg.NATS.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer nc.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	}
	events := client.NewFeedEventPublisher(nc, log)

	// Initialize repositories
	feedRepo := repository.NewFeedRepository(db, log)
	snapshotRepo := repository.NewSnapshotRepository(db, log)

	// Visibility policy is built once and shared read-only across requests.
	policy := feed.DefaultPolicy()

	// Optional snapshot acceleration
	var snapshots service.SnapshotProvider
	if cfg.Feed.SnapshotEnabled {
		refresher := service.NewSnapshotRefresher(snapshotRepo, cfg.Feed, events, log)
		go refresher.Run(ctx)
		snapshots = refresher
		log.Info().
			Dur("interval", cfg.Feed.SnapshotRefreshInterval).
			Str("window", cfg.Feed.SnapshotTimeRange).
			Msg("Snapshot refresher started")
	}

	// Initialize services
	feedService := service.NewFeedService(feedRepo, snapshots, events, policy, cfg.Feed, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(feedService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Feed routes
	mux.HandleFunc("/api/v1/requisitions/feed", httpHandler.GetFeed)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log)(h)
	h = middleware.Recovery(&log)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.RequestTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
