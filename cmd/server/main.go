package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/richardvergely/GeoNature/internal/app"
	"github.com/richardvergely/GeoNature/internal/config"
	"github.com/richardvergely/GeoNature/internal/database"
	"github.com/richardvergely/GeoNature/internal/layer"
	"github.com/richardvergely/GeoNature/internal/logging"
	"github.com/richardvergely/GeoNature/internal/redis"
	"github.com/richardvergely/GeoNature/internal/server"
	"github.com/richardvergely/GeoNature/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return db
}

func setupRedis(cfg *config.Config) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, appSvc *app.Service, hub *websocket.Hub) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		appSvc.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	payloadStore := redis.NewPayloadStore(redisClient)
	releveRepo := database.NewReleveRepo(pool)
	factory := layer.NewFactory(cfg.ClusterRadius)

	subscribe := func(ctx context.Context, mapID uuid.UUID) (<-chan int64, func()) {
		sub := payloadStore.SubscribeRevisions(ctx, mapID)
		return sub.Ch, sub.Close
	}

	// The hub and the app service reference each other: the hub activates maps
	// and reports them empty, the service broadcasts through the hub. Break the
	// cycle by wiring the hub first with closures over the service pointer.
	var appSvc *app.Service

	onFirstClient := func(mapID uuid.UUID) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := appSvc.ActivateMap(ctx, mapID); err != nil {
			slog.Error("Failed to activate map", "map_uuid", mapID.String(), "error", err)
		}
	}
	onMapEmpty := func(mapID uuid.UUID) { appSvc.ReleaseMap(mapID) }

	hub := websocket.NewHub(onFirstClient, onMapEmpty, clock, cfg.MaxClientsPerMap)

	appSvc = app.NewService(payloadStore, releveRepo, factory, hub, subscribe, clock, app.Config{
		Clustered:       cfg.ClusterEnabled,
		ReframeOnUpdate: cfg.ReframeOnUpdate,
		WatchInterval:   cfg.WatchInterval,
	})

	srv := server.NewServer(cfg, appSvc, hub, redisClient, pool)

	done := runGracefulShutdown(srv, appSvc, hub)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
