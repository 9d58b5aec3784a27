package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/homematch/negotiation-engine/internal/domain/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/notification"
	"github.com/homematch/negotiation-engine/internal/domain/pairing"
)

// DefaultMaxAttempts bounds the read-validate-commit loop.
const DefaultMaxAttempts = 5

const notifyTimeout = 5 * time.Second

// CreateInput holds the provider's opening offer.
type CreateInput struct {
	PairingID   string
	RequesterID string
	Amount      int64
	Note        *string
}

// CreateResult reports whether the negotiation was created by this call.
type CreateResult struct {
	Negotiation *domain.Negotiation
	Created     bool
}

// Service exposes the negotiation operations.
type Service struct {
	store       domain.Store
	pairings    pairing.Directory
	notifier    notification.Notifier
	metrics     *Metrics
	maxAttempts int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewService creates a negotiation service. notifier and metrics may be nil.
func NewService(
	store domain.Store,
	pairings pairing.Directory,
	notifier notification.Notifier,
	metrics *Metrics,
	maxAttempts int,
	logger zerolog.Logger,
) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Service{
		store:       store,
		pairings:    pairings,
		notifier:    notifier,
		metrics:     metrics,
		maxAttempts: maxAttempts,
		now:         time.Now,
		logger:      logger.With().Str("service", "negotiation").Logger(),
	}
}

// Create opens a negotiation for a pairing. Only the pairing's provider may
// open it. When one already exists it is returned with Created=false.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if in.Amount <= 0 {
		return nil, s.reject(domain.ErrAmountInvalid)
	}
	p, err := s.pairings.Resolve(ctx, in.PairingID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve pairing: %w", err)
	}
	if p == nil {
		return nil, s.reject(domain.ErrPairingNotFound)
	}
	if in.RequesterID == "" || in.RequesterID != p.ProviderID {
		return nil, s.reject(domain.ErrNotParticipant)
	}

	existing, err := s.store.GetByPairing(ctx, p.PairingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load negotiation: %w", err)
	}
	if existing != nil {
		return &CreateResult{Negotiation: existing, Created: false}, nil
	}
	if !p.Active {
		return nil, s.reject(domain.ErrPairingInactive)
	}

	n, first, err := domain.Open(domain.OpenInput{
		PairingID:  p.PairingID,
		ProviderID: p.ProviderID,
		SeekerID:   p.SeekerID,
		ActorRole:  domain.RoleProvider,
		ActorID:    in.RequesterID,
		Offer:      domain.Offer{Amount: in.Amount, Note: in.Note},
	}, s.now())
	if err != nil {
		return nil, s.reject(err)
	}

	if err := s.store.Create(ctx, n, first); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("failed to create negotiation: %w", err)
		}
		// Lost a creation race; the winner's record is the answer.
		existing, err := s.store.GetByPairing(ctx, p.PairingID)
		if err != nil {
			return nil, fmt.Errorf("failed to load negotiation: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("negotiation for pairing %s vanished after conflict", p.PairingID)
		}
		return &CreateResult{Negotiation: existing, Created: false}, nil
	}

	s.committed(n, first)
	return &CreateResult{Negotiation: n, Created: true}, nil
}

// SubmitOffer records a counter offer from either participant.
func (s *Service) SubmitOffer(ctx context.Context, negotiationID uuid.UUID, requesterID string, amount int64, note *string) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, requesterID, domain.CounterOffer{Amount: amount, Note: note})
}

// Accept agrees to the counterpart's latest figure.
func (s *Service) Accept(ctx context.Context, negotiationID uuid.UUID, requesterID string, note *string) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, requesterID, domain.Accept{Note: note})
}

// Reject ends the negotiation without agreement.
func (s *Service) Reject(ctx context.Context, negotiationID uuid.UUID, requesterID string, note *string) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, requesterID, domain.Reject{Note: note})
}

// Annotate appends a note without changing status.
func (s *Service) Annotate(ctx context.Context, negotiationID uuid.UUID, requesterID, note string) (*domain.Negotiation, error) {
	return s.mutate(ctx, negotiationID, requesterID, domain.Annotate{Note: note})
}

// Get returns a negotiation and its event log to one of its participants.
func (s *Service) Get(ctx context.Context, negotiationID uuid.UUID, requesterID string) (*domain.History, error) {
	n, err := s.store.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load negotiation: %w", err)
	}
	return s.history(ctx, n, requesterID)
}

// GetByPairing is Get keyed by pairing.
func (s *Service) GetByPairing(ctx context.Context, pairingID, requesterID string) (*domain.History, error) {
	n, err := s.store.GetByPairing(ctx, pairingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load negotiation: %w", err)
	}
	return s.history(ctx, n, requesterID)
}

// Verify replays the event log and compares it with the stored record.
func (s *Service) Verify(ctx context.Context, negotiationID uuid.UUID) (*domain.History, error) {
	n, err := s.store.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load negotiation: %w", err)
	}
	if n == nil {
		return nil, domain.ErrNotFound
	}
	events, err := s.store.ListEvents(ctx, negotiationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	h := &domain.History{Negotiation: n, Events: events}
	if err := domain.Verify(n, events); err != nil {
		s.logger.Warn().
			Str("negotiation_id", negotiationID.String()).
			Err(err).
			Msg("negotiation history failed verification")
		return h, err
	}
	return h, nil
}

// ListStale returns open negotiations idle for at least olderThan.
func (s *Service) ListStale(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Negotiation, error) {
	if limit <= 0 {
		limit = 100
	}
	items, err := s.store.ListStale(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale negotiations: %w", err)
	}
	return items, nil
}

func (s *Service) history(ctx context.Context, n *domain.Negotiation, requesterID string) (*domain.History, error) {
	if n == nil {
		return nil, s.reject(domain.ErrNotFound)
	}
	if _, ok := n.RoleOf(requesterID); !ok {
		return nil, s.reject(domain.ErrNotParticipant)
	}
	events, err := s.store.ListEvents(ctx, n.NegotiationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events: %w", err)
	}
	return &domain.History{Negotiation: n, Events: events}, nil
}

// mutate runs the read-validate-commit loop. On a version conflict the record
// is re-read and the decision recomputed against it.
func (s *Service) mutate(ctx context.Context, negotiationID uuid.UUID, requesterID string, cmd domain.Command) (*domain.Negotiation, error) {
	if err := domain.ValidateCommand(cmd); err != nil {
		return nil, s.reject(err)
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.store.GetByID(ctx, negotiationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load negotiation: %w", err)
		}
		if current == nil {
			return nil, s.reject(domain.ErrNotFound)
		}
		role, ok := current.RoleOf(requesterID)
		if !ok {
			return nil, s.reject(domain.ErrNotParticipant)
		}
		if attempt == 1 && !current.Status.IsTerminal() {
			if err := s.ensureActive(ctx, current.PairingID); err != nil {
				return nil, err
			}
		}

		next, event, err := domain.Apply(current, role, requesterID, cmd, s.now())
		if err != nil {
			return nil, s.reject(err)
		}

		if _, err := s.store.Commit(ctx, current.Version, next, event); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				s.metrics.observeConflict()
				s.logger.Debug().
					Str("negotiation_id", negotiationID.String()).
					Int64("version", current.Version).
					Int("attempt", attempt).
					Msg("version conflict, retrying")
				continue
			}
			return nil, fmt.Errorf("failed to commit negotiation: %w", err)
		}

		s.committed(next, event)
		return next, nil
	}

	s.metrics.observeExhausted()
	s.logger.Warn().
		Str("negotiation_id", negotiationID.String()).
		Str("action", string(cmd.Action())).
		Int("attempts", s.maxAttempts).
		Msg("gave up after repeated version conflicts")
	return nil, s.reject(domain.ErrConcurrencyExhausted)
}

func (s *Service) ensureActive(ctx context.Context, pairingID string) error {
	p, err := s.pairings.Resolve(ctx, pairingID)
	if err != nil {
		return fmt.Errorf("failed to resolve pairing: %w", err)
	}
	if p == nil || !p.Active {
		return s.reject(domain.ErrPairingInactive)
	}
	return nil
}

func (s *Service) reject(err error) error {
	s.metrics.observeRejection(err)
	return err
}

func (s *Service) committed(n *domain.Negotiation, e *domain.Event) {
	s.metrics.observeCommit(e.Action)
	s.logger.Info().
		Str("negotiation_id", n.NegotiationID.String()).
		Str("action", string(e.Action)).
		Str("actor_role", string(e.ActorRole)).
		Str("status", string(n.Status)).
		Int64("version", n.Version).
		Msg("negotiation transition committed")
	s.notify(n, e)
}

func (s *Service) notify(n *domain.Negotiation, e *domain.Event) {
	if s.notifier == nil {
		return
	}
	t := &notification.Transition{
		NegotiationID: n.NegotiationID,
		PairingID:     n.PairingID,
		Recipients:    []string{n.ProviderID, n.SeekerID},
		Action:        string(e.Action),
		Status:        string(n.Status),
		AgreedValue:   n.AgreedValue,
		Version:       n.Version,
		OccurredAt:    e.CreatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, t); err != nil {
			s.logger.Warn().
				Str("negotiation_id", t.NegotiationID.String()).
				Int64("version", t.Version).
				Err(err).
				Msg("failed to deliver transition notice")
		}
	}()
}
