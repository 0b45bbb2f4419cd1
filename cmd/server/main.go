package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/biomarkerpulse/internal/analysis"
	"github.com/pscheid92/biomarkerpulse/internal/broadcast"
	"github.com/pscheid92/biomarkerpulse/internal/config"
	"github.com/pscheid92/biomarkerpulse/internal/domain"
	"github.com/pscheid92/biomarkerpulse/internal/logging"
	"github.com/pscheid92/biomarkerpulse/internal/redis"
	"github.com/pscheid92/biomarkerpulse/internal/seed"
	"github.com/pscheid92/biomarkerpulse/internal/server"
	"github.com/pscheid92/biomarkerpulse/internal/store"
	"github.com/pscheid92/biomarkerpulse/internal/version"
	"github.com/pscheid92/biomarkerpulse/internal/websocket"
	goredis "github.com/redis/go-redis/v9"
)

// patientBackend serves both the REST API and the live update broadcaster.
type patientBackend interface {
	server.PatientStore
	domain.MetricStore
}

func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster, hub *websocket.Hub) <-chan struct{} {
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

		broadcaster.Stop()
		hub.Stop()

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// newRandom seeds a PCG source from SEED, or from the clock when SEED is 0.
func newRandom(seedValue uint64, clock clockwork.Clock) *rand.Rand {
	if seedValue == 0 {
		seedValue = uint64(clock.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seedValue, seedValue^0x9e3779b97f4a7c15))
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupBackend(cfg *config.Config, ds seed.Dataset) (patientBackend, *goredis.Client, []server.HealthCheck) {
	if cfg.RedisURL == "" {
		slog.Info("Using in-memory patient store", "patients", len(ds.Patients), "biomarkers", len(ds.Biomarkers))
		return store.NewMemoryStore(ds), nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := setupRedis(ctx, cfg)
	redisStore := redis.NewStore(client)

	seeded, err := redisStore.Seed(ctx, ds)
	if err != nil {
		slog.Error("Failed to seed Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Using Redis patient store", "seeded", seeded)

	checks := []server.HealthCheck{{Name: "redis", Check: redisStore.Ping}}
	return redisStore, client, checks
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "version", version.Get().String(), "env", cfg.AppEnv, "addr", cfg.Addr())

	rng := newRandom(cfg.Seed, clock)
	dataset := seed.Generate(rng)

	backend, redisClient, healthChecks := setupBackend(cfg, dataset)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	hub := websocket.NewHub(clock)
	broadcaster := broadcast.NewBroadcaster(backend, hub, rng, clock)
	wsHandler := websocket.NewHandler(hub, broadcaster, cfg.MaxConnections, websocket.NewCheckOrigin(cfg.Origins(), !cfg.IsProduction()))

	analysisClient := analysis.NewClient(cfg.MCPURL, cfg.AnalysisTimeout)

	srv := server.NewServer(cfg, clock, backend, analysisClient, broadcaster, wsHandler, healthChecks)

	done := runGracefulShutdown(srv, broadcaster, hub)

	slog.Info("Server starting", "addr", cfg.Addr(), "analysis_url", analysisClient.BaseURL())
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
