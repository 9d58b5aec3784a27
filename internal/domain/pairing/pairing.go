package pairing

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_directory.go -package=mocks . Directory

import "context"

// Pairing is an accepted match between a provider and a seeker. It is owned by
// the matching subsystem and read-only here.
type Pairing struct {
	PairingID  string `json:"pairingId"`
	ProviderID string `json:"providerId"`
	SeekerID   string `json:"seekerId"`
	Active     bool   `json:"active"`
}

// Directory resolves pairings from the matching subsystem.
type Directory interface {
	// Resolve returns nil, nil when the pairing is unknown.
	Resolve(ctx context.Context, pairingID string) (*Pairing, error)
}
