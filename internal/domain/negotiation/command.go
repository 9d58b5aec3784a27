package negotiation

import "strings"

// Command is one participant action. The set of implementations is closed;
// every switch over Command in this package handles each of them.
type Command interface {
	Action() Action
	command()
}

// Offer is the provider's initial figure, only valid when opening a negotiation.
type Offer struct {
	Amount int64
	Note   *string
}

// CounterOffer proposes a new figure for the acting party's side.
type CounterOffer struct {
	Amount int64
	Note   *string
}

// Accept closes the negotiation at the counterpart's latest figure.
type Accept struct {
	Note *string
}

// Reject closes the negotiation without agreement.
type Reject struct {
	Note *string
}

// Annotate appends a message without changing state.
type Annotate struct {
	Note string
}

func (Offer) Action() Action        { return ActionOffer }
func (CounterOffer) Action() Action { return ActionCounterOffer }
func (Accept) Action() Action       { return ActionAccept }
func (Reject) Action() Action       { return ActionReject }
func (Annotate) Action() Action     { return ActionAnnotate }

func (Offer) command()        {}
func (CounterOffer) command() {}
func (Accept) command()       {}
func (Reject) command()       {}
func (Annotate) command()     {}

// ValidateCommand checks payload rules that hold regardless of state.
func ValidateCommand(cmd Command) error {
	switch c := cmd.(type) {
	case Offer:
		if c.Amount <= 0 {
			return ErrAmountInvalid
		}
	case CounterOffer:
		if c.Amount <= 0 {
			return ErrAmountInvalid
		}
	case Accept, Reject:
	case Annotate:
		if strings.TrimSpace(c.Note) == "" {
			return ErrNoteRequired
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

// payload extracts the amount and note recorded on the event for cmd.
func payload(cmd Command) (amount *int64, note *string) {
	switch c := cmd.(type) {
	case Offer:
		a := c.Amount
		return &a, normalizeNote(c.Note)
	case CounterOffer:
		a := c.Amount
		return &a, normalizeNote(c.Note)
	case Accept:
		return nil, normalizeNote(c.Note)
	case Reject:
		return nil, normalizeNote(c.Note)
	case Annotate:
		return nil, normalizeNote(&c.Note)
	}
	return nil, nil
}

// CommandFromEvent rebuilds the command that produced e.
func CommandFromEvent(e *Event) (Command, error) {
	switch e.Action {
	case ActionOffer, ActionCounterOffer:
		if e.Amount == nil {
			return nil, historyCorrupt("event %d: %s without amount", e.Version, e.Action)
		}
		if e.Action == ActionOffer {
			return Offer{Amount: *e.Amount, Note: e.Note}, nil
		}
		return CounterOffer{Amount: *e.Amount, Note: e.Note}, nil
	case ActionAccept:
		return Accept{Note: e.Note}, nil
	case ActionReject:
		return Reject{Note: e.Note}, nil
	case ActionAnnotate:
		if e.Note == nil {
			return nil, historyCorrupt("event %d: annotate without note", e.Version)
		}
		return Annotate{Note: *e.Note}, nil
	default:
		return nil, historyCorrupt("event %d: unknown action %q", e.Version, e.Action)
	}
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
