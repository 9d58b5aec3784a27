package memory

import (
	"context"
	"sync"

	"github.com/homematch/negotiation-engine/internal/domain/pairing"
)

// PairingDirectory is an in-process stand-in for the matching subsystem.
type PairingDirectory struct {
	mu       sync.RWMutex
	pairings map[string]pairing.Pairing
}

func NewPairingDirectory(pairings ...pairing.Pairing) *PairingDirectory {
	d := &PairingDirectory{pairings: make(map[string]pairing.Pairing, len(pairings))}
	for _, p := range pairings {
		d.pairings[p.PairingID] = p
	}
	return d
}

// Upsert adds or replaces a pairing.
func (d *PairingDirectory) Upsert(ctx context.Context, p *pairing.Pairing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pairings[p.PairingID] = *p
	return nil
}

// SetActive flips the active flag of a known pairing.
func (d *PairingDirectory) SetActive(pairingID string, active bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.pairings[pairingID]
	if !ok {
		return false
	}
	p.Active = active
	d.pairings[pairingID] = p
	return true
}

func (d *PairingDirectory) Resolve(ctx context.Context, pairingID string) (*pairing.Pairing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.pairings[pairingID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
