// Package memory holds in-process implementations of the negotiation
// collaborators, used by the memory store backend and by tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homematch/negotiation-engine/internal/domain/negotiation"
)

// NegotiationStore keeps records and event logs in memory. Every read returns
// copies so callers can never alter stored state.
type NegotiationStore struct {
	mu        sync.RWMutex
	records   map[uuid.UUID]*negotiation.Negotiation
	byPairing map[string]uuid.UUID
	events    map[uuid.UUID][]*negotiation.Event
	nextID    int64
}

func NewNegotiationStore() *NegotiationStore {
	return &NegotiationStore{
		records:   make(map[uuid.UUID]*negotiation.Negotiation),
		byPairing: make(map[string]uuid.UUID),
		events:    make(map[uuid.UUID][]*negotiation.Event),
	}
}

func (s *NegotiationStore) Create(ctx context.Context, n *negotiation.Negotiation, first *negotiation.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byPairing[n.PairingID]; ok {
		return negotiation.ErrAlreadyExists
	}
	if _, ok := s.records[n.NegotiationID]; ok {
		return negotiation.ErrAlreadyExists
	}
	s.nextID++
	rec := n.Clone()
	rec.ID = s.nextID
	s.records[n.NegotiationID] = rec
	s.byPairing[n.PairingID] = n.NegotiationID
	s.events[n.NegotiationID] = []*negotiation.Event{s.stored(first)}
	return nil
}

func (s *NegotiationStore) Commit(ctx context.Context, expectedVersion int64, n *negotiation.Negotiation, e *negotiation.Event) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[n.NegotiationID]
	if !ok {
		return 0, negotiation.ErrNotFound
	}
	if cur.Version != expectedVersion || e.Version != expectedVersion+1 {
		return 0, negotiation.ErrVersionConflict
	}
	rec := n.Clone()
	rec.ID = cur.ID
	rec.Version = expectedVersion + 1
	s.records[n.NegotiationID] = rec
	s.events[n.NegotiationID] = append(s.events[n.NegotiationID], s.stored(e))
	return rec.Version, nil
}

func (s *NegotiationStore) GetByID(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Negotiation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[negotiationID].Clone(), nil
}

func (s *NegotiationStore) GetByPairing(ctx context.Context, pairingID string) (*negotiation.Negotiation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPairing[pairingID]
	if !ok {
		return nil, nil
	}
	return s.records[id].Clone(), nil
}

func (s *NegotiationStore) ListEvents(ctx context.Context, negotiationID uuid.UUID) ([]*negotiation.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.events[negotiationID]
	out := make([]*negotiation.Event, 0, len(log))
	for _, e := range log {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (s *NegotiationStore) ListStale(ctx context.Context, before time.Time, limit int) ([]*negotiation.Negotiation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []*negotiation.Negotiation
	for _, n := range s.records {
		if !n.Status.IsTerminal() && n.UpdatedAt.Before(before) {
			out = append(out, n.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// stored must be called with mu held.
func (s *NegotiationStore) stored(e *negotiation.Event) *negotiation.Event {
	s.nextID++
	c := e.Clone()
	c.ID = s.nextID
	return c
}
