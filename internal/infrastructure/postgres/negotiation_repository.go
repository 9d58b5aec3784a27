package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homematch/negotiation-engine/internal/domain/negotiation"
)

const negotiationColumns = `id, negotiation_id, pairing_id, provider_id, seeker_id, status, provider_expectation, provider_offer, seeker_offer, agreed_value, version, last_hash, created_at, updated_at`

const eventColumns = `id, event_id, negotiation_id, version, actor_role, actor_id, action, amount, note, prev_hash, hash, created_at`

// NegotiationRepository implements negotiation.Store.
type NegotiationRepository struct {
	pool *pgxpool.Pool
}

func NewNegotiationRepository(pool *pgxpool.Pool) *NegotiationRepository {
	return &NegotiationRepository{pool: pool}
}

func (r *NegotiationRepository) Create(ctx context.Context, n *negotiation.Negotiation, first *negotiation.Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO negotiations
		(negotiation_id, pairing_id, provider_id, seeker_id, status, provider_expectation, provider_offer, seeker_offer, agreed_value, version, last_hash, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, n.NegotiationID, n.PairingID, n.ProviderID, n.SeekerID, string(n.Status), n.ProviderExpectation, n.ProviderOffer,
		n.SeekerOffer, n.AgreedValue, n.Version, n.LastHash, n.CreatedAt, n.UpdatedAt).Scan(&n.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return negotiation.ErrAlreadyExists
		}
		return err
	}
	if err := insertEvent(ctx, tx, first); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *NegotiationRepository) Commit(ctx context.Context, expectedVersion int64, n *negotiation.Negotiation, e *negotiation.Event) (int64, error) {
	if e.Version != expectedVersion+1 {
		return 0, negotiation.ErrVersionConflict
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE negotiations
		SET status=$3, provider_offer=$4, seeker_offer=$5, agreed_value=$6, version=$7, last_hash=$8, updated_at=$9
		WHERE negotiation_id=$1 AND version=$2
	`, n.NegotiationID, expectedVersion, string(n.Status), n.ProviderOffer, n.SeekerOffer, n.AgreedValue,
		expectedVersion+1, n.LastHash, n.UpdatedAt)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM negotiations WHERE negotiation_id=$1)`, n.NegotiationID).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, negotiation.ErrNotFound
		}
		return 0, negotiation.ErrVersionConflict
	}
	if err := insertEvent(ctx, tx, e); err != nil {
		if isUniqueViolation(err) {
			return 0, negotiation.ErrVersionConflict
		}
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return expectedVersion + 1, nil
}

func (r *NegotiationRepository) GetByID(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Negotiation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE negotiation_id=$1`, negotiationID)
	return scanNegotiation(row)
}

func (r *NegotiationRepository) GetByPairing(ctx context.Context, pairingID string) (*negotiation.Negotiation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE pairing_id=$1`, pairingID)
	return scanNegotiation(row)
}

func (r *NegotiationRepository) ListEvents(ctx context.Context, negotiationID uuid.UUID) ([]*negotiation.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM negotiation_events WHERE negotiation_id=$1 ORDER BY version ASC
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*negotiation.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *NegotiationRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*negotiation.Negotiation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+negotiationColumns+`
		FROM negotiations
		WHERE status IN ('PENDING', 'NEGOTIATING') AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*negotiation.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func insertEvent(ctx context.Context, tx pgx.Tx, e *negotiation.Event) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO negotiation_events
		(event_id, negotiation_id, version, actor_role, actor_id, action, amount, note, prev_hash, hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, e.EventID, e.NegotiationID, e.Version, string(e.ActorRole), e.ActorID, string(e.Action), e.Amount, e.Note,
		e.PrevHash, e.Hash, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append event %d: %w", e.Version, err)
	}
	return nil
}

func scanNegotiation(row pgx.Row) (*negotiation.Negotiation, error) {
	var n negotiation.Negotiation
	var status string
	if err := row.Scan(&n.ID, &n.NegotiationID, &n.PairingID, &n.ProviderID, &n.SeekerID, &status,
		&n.ProviderExpectation, &n.ProviderOffer, &n.SeekerOffer, &n.AgreedValue, &n.Version, &n.LastHash,
		&n.CreatedAt, &n.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	n.Status = negotiation.Status(status)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

func scanEvent(row pgx.Row) (*negotiation.Event, error) {
	var e negotiation.Event
	var role, action string
	if err := row.Scan(&e.ID, &e.EventID, &e.NegotiationID, &e.Version, &role, &e.ActorID, &action,
		&e.Amount, &e.Note, &e.PrevHash, &e.Hash, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ActorRole = negotiation.Role(role)
	e.Action = negotiation.Action(action)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
