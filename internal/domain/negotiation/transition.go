package negotiation

import (
	"time"

	"github.com/google/uuid"
)

// OpenInput describes the provider's initial offer for a pairing.
type OpenInput struct {
	NegotiationID uuid.UUID
	PairingID     string
	ProviderID    string
	SeekerID      string
	ActorRole     Role
	ActorID       string
	Offer         Offer
}

// Open validates the initial offer and returns the PENDING record with its
// first event.
func Open(in OpenInput, now time.Time) (*Negotiation, *Event, error) {
	n, err := open(in, stamp(now))
	if err != nil {
		return nil, nil, err
	}
	e := newEvent(n.NegotiationID, n.Version, in.ActorRole, in.ActorID, in.Offer, "", n.UpdatedAt)
	n.LastHash = e.Hash
	return n, e, nil
}

// Apply runs cmd against current and returns the next record and the event to
// append. current is never modified.
func Apply(current *Negotiation, role Role, actorID string, cmd Command, now time.Time) (*Negotiation, *Event, error) {
	next, err := transition(current, role, cmd, stamp(now))
	if err != nil {
		return nil, nil, err
	}
	e := newEvent(next.NegotiationID, next.Version, role, actorID, cmd, current.LastHash, next.UpdatedAt)
	next.LastHash = e.Hash
	return next, e, nil
}

func open(in OpenInput, now time.Time) (*Negotiation, error) {
	if err := ValidateCommand(in.Offer); err != nil {
		return nil, err
	}
	if in.ActorRole != RoleProvider {
		return nil, invalidTransition("NONE", ActionOffer, in.ActorRole)
	}
	id := in.NegotiationID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Negotiation{
		NegotiationID:       id,
		PairingID:           in.PairingID,
		ProviderID:          in.ProviderID,
		SeekerID:            in.SeekerID,
		Status:              StatusPending,
		ProviderExpectation: in.Offer.Amount,
		ProviderOffer:       in.Offer.Amount,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func transition(current *Negotiation, role Role, cmd Command, now time.Time) (*Negotiation, error) {
	if current == nil {
		return nil, ErrNotFound
	}
	if role != RoleProvider && role != RoleSeeker {
		return nil, ErrNotParticipant
	}
	if err := ValidateCommand(cmd); err != nil {
		return nil, err
	}
	if current.Status.IsTerminal() {
		return nil, invalidTransition(current.Status, cmd.Action(), role)
	}

	next := current.Clone()
	switch c := cmd.(type) {
	case Offer:
		return nil, invalidTransition(current.Status, c.Action(), role)
	case CounterOffer:
		switch {
		case current.Status == StatusPending && role == RoleSeeker:
			next.Status = StatusNegotiating
			next.SeekerOffer = &c.Amount
		case current.Status == StatusNegotiating && role == RoleSeeker:
			next.SeekerOffer = &c.Amount
		case current.Status == StatusNegotiating && role == RoleProvider:
			next.ProviderOffer = c.Amount
		default:
			return nil, invalidTransition(current.Status, c.Action(), role)
		}
	case Accept:
		if current.Status != StatusNegotiating {
			return nil, invalidTransition(current.Status, c.Action(), role)
		}
		figure, ok := current.FigureOf(role.Counterpart())
		if !ok {
			return nil, invalidTransition(current.Status, c.Action(), role)
		}
		next.Status = StatusAgreed
		next.AgreedValue = &figure
	case Reject:
		next.Status = StatusRejected
	case Annotate:
	default:
		return nil, invalidTransition(current.Status, cmd.Action(), role)
	}

	next.Version = current.Version + 1
	next.UpdatedAt = now
	return next, nil
}

func newEvent(negotiationID uuid.UUID, version int64, role Role, actorID string, cmd Command, prevHash string, at time.Time) *Event {
	amount, note := payload(cmd)
	e := &Event{
		EventID:       uuid.New(),
		NegotiationID: negotiationID,
		Version:       version,
		ActorRole:     role,
		ActorID:       actorID,
		Action:        cmd.Action(),
		Amount:        amount,
		Note:          note,
		PrevHash:      prevHash,
		CreatedAt:     at,
	}
	e.Hash = ComputeChainHash(ComputeEventHash(e), prevHash)
	return e
}

// stamp normalizes timestamps to what Postgres stores so hashes survive a round trip.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
