package negotiation

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a negotiation.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusNegotiating Status = "NEGOTIATING"
	StatusAgreed      Status = "AGREED"
	StatusRejected    Status = "REJECTED"
)

// IsTerminal reports whether no further mutation is accepted.
func (s Status) IsTerminal() bool {
	return s == StatusAgreed || s == StatusRejected
}

// Role is the side a participant plays on a pairing.
type Role string

const (
	RoleProvider Role = "PROVIDER"
	RoleSeeker   Role = "SEEKER"
)

// Counterpart returns the opposite role.
func (r Role) Counterpart() Role {
	if r == RoleProvider {
		return RoleSeeker
	}
	return RoleProvider
}

// Action identifies the kind of an event.
type Action string

const (
	ActionOffer        Action = "offer"
	ActionCounterOffer Action = "counter_offer"
	ActionAccept       Action = "accept"
	ActionReject       Action = "reject"
	ActionAnnotate     Action = "annotate"
)

// Negotiation is the projection of a negotiation's event log.
type Negotiation struct {
	ID                  int64     `json:"-"`
	NegotiationID       uuid.UUID `json:"negotiationId"`
	PairingID           string    `json:"pairingId"`
	ProviderID          string    `json:"providerId"`
	SeekerID            string    `json:"seekerId"`
	Status              Status    `json:"status"`
	ProviderExpectation int64     `json:"providerExpectation"`
	ProviderOffer       int64     `json:"providerOffer"`
	SeekerOffer         *int64    `json:"seekerOffer,omitempty"`
	AgreedValue         *int64    `json:"agreedValue,omitempty"`
	Version             int64     `json:"version"`
	LastHash            string    `json:"lastHash"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// Clone returns a deep copy so callers never share pointer fields.
func (n *Negotiation) Clone() *Negotiation {
	if n == nil {
		return nil
	}
	out := *n
	if n.SeekerOffer != nil {
		v := *n.SeekerOffer
		out.SeekerOffer = &v
	}
	if n.AgreedValue != nil {
		v := *n.AgreedValue
		out.AgreedValue = &v
	}
	return &out
}

// RoleOf resolves the role of a participant on this negotiation.
func (n *Negotiation) RoleOf(participantID string) (Role, bool) {
	switch {
	case participantID == "":
		return "", false
	case participantID == n.ProviderID:
		return RoleProvider, true
	case participantID == n.SeekerID:
		return RoleSeeker, true
	default:
		return "", false
	}
}

// FigureOf returns the latest figure proposed by the given role.
func (n *Negotiation) FigureOf(role Role) (int64, bool) {
	if role == RoleProvider {
		return n.ProviderOffer, true
	}
	if n.SeekerOffer == nil {
		return 0, false
	}
	return *n.SeekerOffer, true
}

// Event is one immutable fact in a negotiation's history.
type Event struct {
	ID            int64     `json:"-"`
	EventID       uuid.UUID `json:"eventId"`
	NegotiationID uuid.UUID `json:"negotiationId"`
	Version       int64     `json:"version"`
	ActorRole     Role      `json:"actorRole"`
	ActorID       string    `json:"actorId"`
	Action        Action    `json:"action"`
	Amount        *int64    `json:"amount,omitempty"`
	Note          *string   `json:"note,omitempty"`
	PrevHash      string    `json:"prevHash"`
	Hash          string    `json:"hash"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	out := *e
	if e.Amount != nil {
		v := *e.Amount
		out.Amount = &v
	}
	if e.Note != nil {
		v := *e.Note
		out.Note = &v
	}
	return &out
}

// History bundles a negotiation with its full event log.
type History struct {
	Negotiation *Negotiation `json:"negotiation"`
	Events      []*Event     `json:"events"`
}
