package intent

import "errors"

var (
	// ErrUnknownStrategy is returned for a strategy name that is not recognised.
	ErrUnknownStrategy = errors.New("intent: unknown strategy")

	// ErrNoReasoner is returned when a reasoning strategy is selected without
	// a reasoning backend.
	ErrNoReasoner = errors.New("intent: reasoning strategy requires a reasoner")

	// ErrReasoning wraps failures of the reasoning backend.
	ErrReasoning = errors.New("intent: reasoning backend failed")

	// ErrInvalidRule is returned for a rule without tag or pattern.
	ErrInvalidRule = errors.New("intent: invalid rule")
)
