package policy

import "errors"

var (
	// ErrToolNotFound is returned by Lookup for an unregistered tool.
	ErrToolNotFound = errors.New("policy: tool not found")

	// ErrHandlerNotFound is returned for an unregistered handler.
	ErrHandlerNotFound = errors.New("policy: handler not found")

	// ErrInvalidTier is returned for a tier outside LOW, MEDIUM, HIGH.
	ErrInvalidTier = errors.New("policy: invalid risk tier")

	// ErrDuplicateTool is returned when two descriptors share an id.
	ErrDuplicateTool = errors.New("policy: duplicate tool")

	// ErrDuplicateHandler is returned when two handlers share an id.
	ErrDuplicateHandler = errors.New("policy: duplicate handler")

	// ErrUnregisteredTool is returned when a handler lists a tool that has
	// no descriptor.
	ErrUnregisteredTool = errors.New("policy: handler references unregistered tool")

	// ErrSharedTool is returned when a tool is listed by more than one handler.
	ErrSharedTool = errors.New("policy: tool listed by more than one handler")

	// ErrOrphanTool is returned when no handler lists a tool.
	ErrOrphanTool = errors.New("policy: tool not owned by any handler")

	// ErrOwnerMismatch is returned when a descriptor names a different owner
	// than the handler that lists it.
	ErrOwnerMismatch = errors.New("policy: tool owner mismatch")
)
