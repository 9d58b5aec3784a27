package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_notifier.go -package=mocks . Notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventTransition is the SSE event name for negotiation transitions.
const EventTransition = "negotiation.transition"

var (
	ErrClientNotFound = errors.New("SSE client not found")
	ErrChannelFull    = errors.New("SSE message channel full")
)

// Transition is delivered to participants after a committed negotiation change.
type Transition struct {
	NegotiationID uuid.UUID `json:"negotiationId"`
	PairingID     string    `json:"pairingId"`
	Recipients    []string  `json:"-"`
	Action        string    `json:"action"`
	Status        string    `json:"status"`
	AgreedValue   *int64    `json:"agreedValue,omitempty"`
	Version       int64     `json:"version"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notifier delivers transitions. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, t *Transition) error
}

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client
func NewSSEClient(clientID string, userID string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransitionMessage wraps a transition as an SSE message.
func NewTransitionMessage(t *Transition) (*SSEMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return NewSSEMessage(EventTransition, data), nil
}
