package negotiation

import "fmt"

// Code is a stable reason code returned to callers.
type Code string

const (
	CodeNotParticipant       Code = "NOT_PARTICIPANT"
	CodeAmountInvalid        Code = "AMOUNT_INVALID"
	CodeNoteRequired         Code = "NOTE_REQUIRED"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeNotFound             Code = "NEGOTIATION_NOT_FOUND"
	CodeAlreadyExists        Code = "ALREADY_EXISTS"
	CodeConcurrencyExhausted Code = "CONCURRENCY_EXHAUSTED"
	CodePairingInactive      Code = "PAIRING_INACTIVE"
	CodePairingNotFound      Code = "PAIRING_NOT_FOUND"
	CodeVersionConflict      Code = "VERSION_CONFLICT"
	CodeHistoryCorrupt       Code = "HISTORY_CORRUPT"
)

// Error is an expected, recoverable negotiation outcome.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrNotParticipant       = &Error{Code: CodeNotParticipant, Message: "requester is not a participant of the pairing"}
	ErrAmountInvalid        = &Error{Code: CodeAmountInvalid, Message: "amount must be a positive integer"}
	ErrNoteRequired         = &Error{Code: CodeNoteRequired, Message: "note is required"}
	ErrInvalidTransition    = &Error{Code: CodeInvalidTransition, Message: "action is not allowed in the current state"}
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "negotiation not found"}
	ErrAlreadyExists        = &Error{Code: CodeAlreadyExists, Message: "negotiation already exists for pairing"}
	ErrConcurrencyExhausted = &Error{Code: CodeConcurrencyExhausted, Message: "too many concurrent updates, refetch and retry"}
	ErrPairingInactive      = &Error{Code: CodePairingInactive, Message: "pairing is no longer active"}
	ErrPairingNotFound      = &Error{Code: CodePairingNotFound, Message: "pairing not found"}
	ErrVersionConflict      = &Error{Code: CodeVersionConflict, Message: "negotiation version changed"}
	ErrHistoryCorrupt       = &Error{Code: CodeHistoryCorrupt, Message: "negotiation history does not verify"}
)

func invalidTransition(status Status, action Action, role Role) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("%s by %s is not allowed while %s", action, role, status),
	}
}

func historyCorrupt(format string, args ...interface{}) *Error {
	return &Error{Code: CodeHistoryCorrupt, Message: fmt.Sprintf(format, args...)}
}
