package negotiation

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string  { return &v }

func openTestNegotiation(t *testing.T, amount int64) (*Negotiation, *Event) {
	t.Helper()
	n, e, err := Open(OpenInput{
		PairingID:  "pairing-1",
		ProviderID: "provider-1",
		SeekerID:   "seeker-1",
		ActorRole:  RoleProvider,
		ActorID:    "provider-1",
		Offer:      Offer{Amount: amount},
	}, time.Now())
	require.NoError(t, err)
	return n, e
}

func fixture(status Status) *Negotiation {
	n := &Negotiation{
		NegotiationID:       uuid.New(),
		PairingID:           "pairing-1",
		ProviderID:          "provider-1",
		SeekerID:            "seeker-1",
		Status:              status,
		ProviderExpectation: 80000,
		ProviderOffer:       80000,
		Version:             3,
	}
	if status != StatusPending {
		n.SeekerOffer = int64Ptr(60000)
	}
	if status == StatusAgreed {
		n.AgreedValue = int64Ptr(80000)
	}
	return n
}

func TestOpen(t *testing.T) {
	t.Run("provider opens pending negotiation", func(t *testing.T) {
		n, e := openTestNegotiation(t, 80000)

		assert.NotEqual(t, uuid.Nil, n.NegotiationID)
		assert.Equal(t, StatusPending, n.Status)
		assert.Equal(t, int64(80000), n.ProviderExpectation)
		assert.Equal(t, int64(80000), n.ProviderOffer)
		assert.Nil(t, n.SeekerOffer)
		assert.Nil(t, n.AgreedValue)
		assert.Equal(t, int64(1), n.Version)

		assert.Equal(t, ActionOffer, e.Action)
		assert.Equal(t, RoleProvider, e.ActorRole)
		assert.Equal(t, int64(1), e.Version)
		require.NotNil(t, e.Amount)
		assert.Equal(t, int64(80000), *e.Amount)
		assert.Empty(t, e.PrevHash)
		assert.Equal(t, e.Hash, n.LastHash)
	})

	t.Run("seeker cannot open", func(t *testing.T) {
		_, _, err := Open(OpenInput{ActorRole: RoleSeeker, Offer: Offer{Amount: 100}}, time.Now())
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		for _, amount := range []int64{0, -1} {
			_, _, err := Open(OpenInput{ActorRole: RoleProvider, Offer: Offer{Amount: amount}}, time.Now())
			assert.ErrorIs(t, err, ErrAmountInvalid)
		}
	})
}

func TestApply_TransitionClosure(t *testing.T) {
	type key struct {
		status Status
		action Action
		role   Role
	}
	allowed := map[key]Status{
		{StatusPending, ActionCounterOffer, RoleSeeker}:       StatusNegotiating,
		{StatusPending, ActionReject, RoleSeeker}:             StatusRejected,
		{StatusPending, ActionReject, RoleProvider}:           StatusRejected,
		{StatusPending, ActionAnnotate, RoleSeeker}:           StatusPending,
		{StatusPending, ActionAnnotate, RoleProvider}:         StatusPending,
		{StatusNegotiating, ActionCounterOffer, RoleSeeker}:   StatusNegotiating,
		{StatusNegotiating, ActionCounterOffer, RoleProvider}: StatusNegotiating,
		{StatusNegotiating, ActionAccept, RoleSeeker}:         StatusAgreed,
		{StatusNegotiating, ActionAccept, RoleProvider}:       StatusAgreed,
		{StatusNegotiating, ActionReject, RoleSeeker}:         StatusRejected,
		{StatusNegotiating, ActionReject, RoleProvider}:       StatusRejected,
		{StatusNegotiating, ActionAnnotate, RoleSeeker}:       StatusNegotiating,
		{StatusNegotiating, ActionAnnotate, RoleProvider}:     StatusNegotiating,
	}
	commands := []Command{
		Offer{Amount: 75000},
		CounterOffer{Amount: 75000},
		Accept{},
		Reject{},
		Annotate{Note: "see attached schedule"},
	}

	for _, status := range []Status{StatusPending, StatusNegotiating, StatusAgreed, StatusRejected} {
		for _, cmd := range commands {
			for _, role := range []Role{RoleProvider, RoleSeeker} {
				name := fmt.Sprintf("%s %s by %s", status, cmd.Action(), role)
				t.Run(name, func(t *testing.T) {
					current := fixture(status)
					next, event, err := Apply(current, role, "actor", cmd, time.Now())

					want, ok := allowed[key{status, cmd.Action(), role}]
					if !ok {
						assert.ErrorIs(t, err, ErrInvalidTransition)
						assert.Nil(t, next)
						assert.Nil(t, event)
						return
					}
					require.NoError(t, err)
					assert.Equal(t, want, next.Status)
					assert.Equal(t, current.Version+1, next.Version)
					assert.Equal(t, next.Version, event.Version)
					assert.Equal(t, cmd.Action(), event.Action)
					assert.Equal(t, role, event.ActorRole)
					assert.Equal(t, status, current.Status, "current must not be mutated")
				})
			}
		}
	}
}

func TestApply_CounterOfferUpdatesActingSide(t *testing.T) {
	n, _ := openTestNegotiation(t, 80000)

	n, e, err := Apply(n, RoleSeeker, "seeker-1", CounterOffer{Amount: 60000, Note: strPtr("  weekends only ")}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, StatusNegotiating, n.Status)
	require.NotNil(t, n.SeekerOffer)
	assert.Equal(t, int64(60000), *n.SeekerOffer)
	assert.Equal(t, int64(80000), n.ProviderOffer)
	require.NotNil(t, e.Note)
	assert.Equal(t, "weekends only", *e.Note)

	n, _, err = Apply(n, RoleProvider, "provider-1", CounterOffer{Amount: 70000}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(70000), n.ProviderOffer)
	assert.Equal(t, int64(80000), n.ProviderExpectation)
	assert.Equal(t, int64(60000), *n.SeekerOffer)
}

func TestApply_AcceptUsesCounterpartFigure(t *testing.T) {
	t.Run("seeker accepts provider counter", func(t *testing.T) {
		n, _ := openTestNegotiation(t, 80000)
		n, _, err := Apply(n, RoleSeeker, "seeker-1", CounterOffer{Amount: 60000}, time.Now())
		require.NoError(t, err)
		n, _, err = Apply(n, RoleProvider, "provider-1", CounterOffer{Amount: 70000}, time.Now())
		require.NoError(t, err)

		n, e, err := Apply(n, RoleSeeker, "seeker-1", Accept{}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, StatusAgreed, n.Status)
		require.NotNil(t, n.AgreedValue)
		assert.Equal(t, int64(70000), *n.AgreedValue)
		assert.Nil(t, e.Amount)
	})

	t.Run("provider accepts seeker counter", func(t *testing.T) {
		n, _ := openTestNegotiation(t, 80000)
		n, _, err := Apply(n, RoleSeeker, "seeker-1", CounterOffer{Amount: 65000}, time.Now())
		require.NoError(t, err)

		n, _, err = Apply(n, RoleProvider, "provider-1", Accept{}, time.Now())
		require.NoError(t, err)
		require.NotNil(t, n.AgreedValue)
		assert.Equal(t, int64(65000), *n.AgreedValue)
	})
}

func TestApply_PayloadValidation(t *testing.T) {
	n, _ := openTestNegotiation(t, 80000)

	_, _, err := Apply(n, RoleSeeker, "seeker-1", CounterOffer{Amount: 0}, time.Now())
	assert.ErrorIs(t, err, ErrAmountInvalid)

	_, _, err = Apply(n, RoleSeeker, "seeker-1", Annotate{Note: "   "}, time.Now())
	assert.ErrorIs(t, err, ErrNoteRequired)

	_, _, err = Apply(n, Role("ADMIN"), "admin", Reject{}, time.Now())
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, _, err = Apply(nil, RoleSeeker, "seeker-1", Reject{}, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApply_TerminalRejectsEverything(t *testing.T) {
	n, _ := openTestNegotiation(t, 80000)
	n, _, err := Apply(n, RoleProvider, "provider-1", Reject{Note: strPtr("found someone else")}, time.Now())
	require.NoError(t, err)
	require.Equal(t, StatusRejected, n.Status)

	for _, cmd := range []Command{CounterOffer{Amount: 1}, Accept{}, Reject{}, Annotate{Note: "hello"}} {
		_, _, err := Apply(n, RoleSeeker, "seeker-1", cmd, time.Now())
		var negErr *Error
		require.True(t, errors.As(err, &negErr))
		assert.Equal(t, CodeInvalidTransition, negErr.Code)
	}
}

func TestApply_ChainsHashes(t *testing.T) {
	n, first := openTestNegotiation(t, 80000)
	next, e, err := Apply(n, RoleSeeker, "seeker-1", CounterOffer{Amount: 60000}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, first.Hash, e.PrevHash)
	assert.Equal(t, e.Hash, next.LastHash)
	assert.NoError(t, VerifyChain([]*Event{first, e}))
}
