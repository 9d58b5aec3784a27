package negotiation

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_store.go -package=mocks . Store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the only write path to negotiation records and their event logs.
type Store interface {
	// Create inserts a new record with its first event. It returns
	// ErrAlreadyExists when the pairing already has a negotiation.
	Create(ctx context.Context, n *Negotiation, first *Event) error

	// Commit atomically replaces the record and appends e, provided the stored
	// version still equals expectedVersion. Otherwise it returns ErrVersionConflict.
	Commit(ctx context.Context, expectedVersion int64, n *Negotiation, e *Event) (int64, error)

	// GetByID and GetByPairing return nil, nil when nothing is stored.
	GetByID(ctx context.Context, negotiationID uuid.UUID) (*Negotiation, error)
	GetByPairing(ctx context.Context, pairingID string) (*Negotiation, error)

	// ListEvents returns the full log ordered by version.
	ListEvents(ctx context.Context, negotiationID uuid.UUID) ([]*Event, error)

	// ListStale returns non-terminal negotiations not updated since before.
	ListStale(ctx context.Context, before time.Time, limit int) ([]*Negotiation, error)
}
