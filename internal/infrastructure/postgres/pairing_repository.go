package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homematch/negotiation-engine/internal/domain/pairing"
)

// PairingRepository implements pairing.Directory over the matching read model.
type PairingRepository struct {
	pool *pgxpool.Pool
}

func NewPairingRepository(pool *pgxpool.Pool) *PairingRepository {
	return &PairingRepository{pool: pool}
}

func (r *PairingRepository) Resolve(ctx context.Context, pairingID string) (*pairing.Pairing, error) {
	var p pairing.Pairing
	err := r.pool.QueryRow(ctx, `
		SELECT pairing_id, provider_id, seeker_id, active
		FROM pairings WHERE pairing_id=$1
	`, pairingID).Scan(&p.PairingID, &p.ProviderID, &p.SeekerID, &p.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert writes a pairing as published by the matching subsystem.
func (r *PairingRepository) Upsert(ctx context.Context, p *pairing.Pairing) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pairings (pairing_id, provider_id, seeker_id, active, updated_at)
		VALUES ($1,$2,$3,$4,NOW())
		ON CONFLICT (pairing_id) DO UPDATE
		SET provider_id=EXCLUDED.provider_id,
			seeker_id=EXCLUDED.seeker_id,
			active=EXCLUDED.active,
			updated_at=NOW()
	`, p.PairingID, p.ProviderID, p.SeekerID, p.Active)
	return err
}
