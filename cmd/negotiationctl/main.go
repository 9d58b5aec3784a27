// Command negotiationctl is the operator tool for the negotiation store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/homematch/negotiation-engine/internal/application/negotiation"
	"github.com/homematch/negotiation-engine/internal/config"
	"github.com/homematch/negotiation-engine/internal/infrastructure/postgres"
)

func main() {
	root := newRootCommand(openPostgres)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openPostgres connects to the configured database. The in-memory backend is
// meaningless for an out-of-process tool, so it is always Postgres.
func openPostgres(ctx context.Context, logger zerolog.Logger) (*backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db error: %w", err)
	}
	pairings := postgres.NewPairingRepository(pool)
	svc := negotiation.NewService(postgres.NewNegotiationRepository(pool), pairings, nil, nil, cfg.CommitMaxAttempts, logger)
	return &backend{svc: svc, pairings: pairings, close: pool.Close}, nil
}
