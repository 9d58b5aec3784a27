package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	httpapi "github.com/homematch/negotiation-engine/internal/api/http"
	"github.com/homematch/negotiation-engine/internal/application/negotiation"
	"github.com/homematch/negotiation-engine/internal/config"
	domain "github.com/homematch/negotiation-engine/internal/domain/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/pairing"
	"github.com/homematch/negotiation-engine/internal/infrastructure/memory"
	"github.com/homematch/negotiation-engine/internal/infrastructure/postgres"
	"github.com/homematch/negotiation-engine/internal/infrastructure/sse"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx := context.Background()

	// repositories
	var (
		store    domain.Store
		pairings pairing.Directory
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		dir := memory.NewPairingDirectory()
		for _, p := range cfg.SeedPairings {
			seed := &pairing.Pairing{PairingID: p.PairingID, ProviderID: p.ProviderID, SeekerID: p.SeekerID, Active: true}
			if err := dir.Upsert(ctx, seed); err != nil {
				log.Fatalf("seed pairing error: %v", err)
			}
		}
		store = memory.NewNegotiationStore()
		pairings = dir
		logger.Warn().Int("pairings", len(cfg.SeedPairings)).Msg("using in-memory store, data is lost on exit")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		store = postgres.NewNegotiationRepository(pool)
		pairings = postgres.NewPairingRepository(pool)
	}

	// infrastructure
	sseHub := sse.NewHub()
	var (
		metrics        *negotiation.Metrics
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		metrics = negotiation.NewMetrics(prometheus.DefaultRegisterer)
		metricsHandler = promhttp.Handler()
	}

	// services
	negotiationSvc := negotiation.NewService(store, pairings, sseHub, metrics, cfg.CommitMaxAttempts, logger)

	// API server
	apiServer := httpapi.NewServer(negotiationSvc, sseHub, metricsHandler, cfg.ParticipantHeader, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open; API routes carry their own timeout.
		IdleTimeout:  60 * time.Second,
	}

	// start server
	go func() {
		logger.Info().
			Str("addr", cfg.ServerAddr).
			Str("store", cfg.StoreBackend).
			Int("commit_max_attempts", cfg.CommitMaxAttempts).
			Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")
	sseHub.Stop()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
