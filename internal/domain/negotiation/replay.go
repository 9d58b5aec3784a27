package negotiation

// Replay rebuilds a negotiation record from an empty state by running every
// event back through the transition rules. pairingID, providerID and seekerID
// come from the stored record because events do not repeat them.
func Replay(pairingID, providerID, seekerID string, events []*Event) (*Negotiation, error) {
	if len(events) == 0 {
		return nil, historyCorrupt("empty event log")
	}
	if err := VerifyChain(events); err != nil {
		return nil, err
	}

	first := events[0]
	cmd, err := CommandFromEvent(first)
	if err != nil {
		return nil, err
	}
	offer, ok := cmd.(Offer)
	if !ok {
		return nil, historyCorrupt("first event is %s, expected %s", first.Action, ActionOffer)
	}
	n, err := open(OpenInput{
		NegotiationID: first.NegotiationID,
		PairingID:     pairingID,
		ProviderID:    providerID,
		SeekerID:      seekerID,
		ActorRole:     first.ActorRole,
		ActorID:       first.ActorID,
		Offer:         offer,
	}, first.CreatedAt)
	if err != nil {
		return nil, historyCorrupt("event 1 rejected: %v", err)
	}
	n.LastHash = first.Hash

	for _, e := range events[1:] {
		if e.NegotiationID != n.NegotiationID {
			return nil, historyCorrupt("event %d belongs to another negotiation", e.Version)
		}
		cmd, err := CommandFromEvent(e)
		if err != nil {
			return nil, err
		}
		next, err := transition(n, e.ActorRole, cmd, e.CreatedAt)
		if err != nil {
			return nil, historyCorrupt("event %d rejected: %v", e.Version, err)
		}
		next.LastHash = e.Hash
		n = next
	}
	return n, nil
}

// Verify replays events and checks that stored matches the rebuilt record.
func Verify(stored *Negotiation, events []*Event) error {
	rebuilt, err := Replay(stored.PairingID, stored.ProviderID, stored.SeekerID, events)
	if err != nil {
		return err
	}
	switch {
	case rebuilt.NegotiationID != stored.NegotiationID:
		return historyCorrupt("negotiation id differs from event log")
	case rebuilt.Status != stored.Status:
		return historyCorrupt("status %s, event log gives %s", stored.Status, rebuilt.Status)
	case rebuilt.Version != stored.Version:
		return historyCorrupt("version %d, event log gives %d", stored.Version, rebuilt.Version)
	case rebuilt.ProviderExpectation != stored.ProviderExpectation:
		return historyCorrupt("provider expectation differs from event log")
	case rebuilt.ProviderOffer != stored.ProviderOffer:
		return historyCorrupt("provider offer differs from event log")
	case !equalAmount(rebuilt.SeekerOffer, stored.SeekerOffer):
		return historyCorrupt("seeker offer differs from event log")
	case !equalAmount(rebuilt.AgreedValue, stored.AgreedValue):
		return historyCorrupt("agreed value differs from event log")
	case rebuilt.LastHash != stored.LastHash:
		return historyCorrupt("head hash differs from event log")
	}
	return nil
}

func equalAmount(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
