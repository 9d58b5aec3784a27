package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appNegotiation "github.com/homematch/negotiation-engine/internal/application/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/pairing"
	"github.com/homematch/negotiation-engine/internal/infrastructure/memory"
)

type memoryBackend struct {
	store *memory.NegotiationStore
	dir   *memory.PairingDirectory
	svc   *appNegotiation.Service
}

func newMemoryBackend() *memoryBackend {
	store := memory.NewNegotiationStore()
	dir := memory.NewPairingDirectory()
	return &memoryBackend{
		store: store,
		dir:   dir,
		svc:   appNegotiation.NewService(store, dir, nil, nil, 0, zerolog.Nop()),
	}
}

func (m *memoryBackend) opener() opener {
	return func(context.Context, zerolog.Logger) (*backend, error) {
		return &backend{svc: m.svc, pairings: m.dir}, nil
	}
}

func execute(t *testing.T, m *memoryBackend, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(m.opener())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPairingPutThenVerify(t *testing.T) {
	m := newMemoryBackend()

	out, err := execute(t, m, "pairing", "put", "pairing-1", "--provider", "provider-1", "--seeker", "seeker-1")
	require.NoError(t, err)
	assert.Contains(t, out, "pairing pairing-1 saved (active=true)")

	ctx := context.Background()
	res, err := m.svc.Create(ctx, appNegotiation.CreateInput{PairingID: "pairing-1", RequesterID: "provider-1", Amount: 80000})
	require.NoError(t, err)
	id := res.Negotiation.NegotiationID
	_, err = m.svc.SubmitOffer(ctx, id, "seeker-1", 60000, nil)
	require.NoError(t, err)

	out, err = execute(t, m, "verify", id.String())
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
	assert.Contains(t, out, "version=2")
	assert.Contains(t, out, "events=2")
}

func TestVerifyReportsMissingNegotiation(t *testing.T) {
	m := newMemoryBackend()
	out, err := execute(t, m, "verify", "7f9c3c1e-9f3e-4a59-8d7c-7a1b6f1f4a10")
	require.Error(t, err)
	assert.Contains(t, out, string(negotiation.CodeNotFound))
}

func TestVerifyRejectsMalformedID(t *testing.T) {
	_, err := execute(t, newMemoryBackend(), "verify", "nope")
	assert.Error(t, err)
}

func TestPairingPutValidation(t *testing.T) {
	m := newMemoryBackend()
	_, err := execute(t, m, "pairing", "put", "pairing-1", "--provider", "same", "--seeker", "same")
	assert.Error(t, err)
	_, err = execute(t, m, "pairing", "put", "pairing-1", "--provider", "p")
	assert.Error(t, err)
}

func TestStaleListsIdleNegotiations(t *testing.T) {
	m := newMemoryBackend()
	ctx := context.Background()
	require.NoError(t, m.dir.Upsert(ctx, &pairing.Pairing{PairingID: "pairing-1", ProviderID: "provider-1", SeekerID: "seeker-1", Active: true}))

	// Seed directly so the record looks idle for ten days.
	n, first, err := negotiation.Open(negotiation.OpenInput{
		PairingID:  "pairing-1",
		ProviderID: "provider-1",
		SeekerID:   "seeker-1",
		ActorRole:  negotiation.RoleProvider,
		ActorID:    "provider-1",
		Offer:      negotiation.Offer{Amount: 80000},
	}, time.Now().Add(-240*time.Hour))
	require.NoError(t, err)
	require.NoError(t, m.store.Create(ctx, n, first))

	out, err := execute(t, m, "stale", "--older-than", "168h")
	require.NoError(t, err)
	assert.Contains(t, out, "NEGOTIATION")
	assert.Contains(t, out, n.NegotiationID.String())
	assert.Contains(t, out, "PENDING")

	out, err = execute(t, m, "stale", "--older-than", "720h")
	require.NoError(t, err)
	assert.NotContains(t, out, n.NegotiationID.String())
}
