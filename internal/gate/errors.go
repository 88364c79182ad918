package gate

import "errors"

// Gate errors. Each is terminal for the confirmation id it concerns except
// ErrAcknowledgementMismatch, which leaves the entry pending.
var (
	// ErrNotFound means no confirmation has the given id.
	ErrNotFound = errors.New("gate: confirmation not found")

	// ErrSessionMismatch means the caller is not the session that created
	// the confirmation.
	ErrSessionMismatch = errors.New("gate: session mismatch")

	// ErrAlreadyResolved means the confirmation already left PENDING.
	ErrAlreadyResolved = errors.New("gate: confirmation already resolved")

	// ErrExpired means the confirmation timed out before being confirmed.
	ErrExpired = errors.New("gate: confirmation expired")

	// ErrAcknowledgementMismatch means a HIGH risk confirmation was answered
	// without repeating the required phrase.
	ErrAcknowledgementMismatch = errors.New("gate: acknowledgement does not match")
)
