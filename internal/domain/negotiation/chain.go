package negotiation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// eventHashInput is the canonical content covered by an event hash.
type eventHashInput struct {
	NegotiationID string  `json:"negotiationId"`
	EventID       string  `json:"eventId"`
	Version       int64   `json:"version"`
	ActorRole     Role    `json:"actorRole"`
	ActorID       string  `json:"actorId"`
	Action        Action  `json:"action"`
	Amount        *int64  `json:"amount,omitempty"`
	Note          *string `json:"note,omitempty"`
	CreatedAt     string  `json:"createdAt"`
}

// ComputeEventHash computes the SHA-256 hash of an event's content.
func ComputeEventHash(e *Event) string {
	data, _ := json.Marshal(eventHashInput{
		NegotiationID: e.NegotiationID.String(),
		EventID:       e.EventID.String(),
		Version:       e.Version,
		ActorRole:     e.ActorRole,
		ActorID:       e.ActorID,
		Action:        e.Action,
		Amount:        e.Amount,
		Note:          e.Note,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ComputeChainHash links an event hash to the previous entry's hash.
func ComputeChainHash(eventHash, prevHash string) string {
	hash := sha256.Sum256([]byte(eventHash + prevHash))
	return hex.EncodeToString(hash[:])
}

// VerifyChain checks ordering and hash links of a full event log.
func VerifyChain(events []*Event) error {
	prev := ""
	for i, e := range events {
		if e.Version != int64(i+1) {
			return historyCorrupt("event at position %d has version %d", i+1, e.Version)
		}
		if e.PrevHash != prev {
			return historyCorrupt("event %d does not link to its predecessor", e.Version)
		}
		if e.Hash != ComputeChainHash(ComputeEventHash(e), e.PrevHash) {
			return historyCorrupt("event %d hash mismatch", e.Version)
		}
		prev = e.Hash
	}
	return nil
}
