package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for dispatch failures.
var (
	ErrNotWhitelisted = errors.New("dispatch: tool not whitelisted for handler")
	ErrDispatch       = errors.New("dispatch: backend call failed")
	ErrToolFailed     = errors.New("dispatch: tool reported failure")
)

// DispatchError wraps a failed backend call. Whether the failure is
// transient is a property of Cause.
type DispatchError struct {
	Tool  string
	Cause error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch: %s: %v", e.Tool, e.Cause)
}

// Unwrap returns the backend's error.
func (e *DispatchError) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrDispatch) hold for every DispatchError.
func (e *DispatchError) Is(target error) bool { return target == ErrDispatch }

// ToolError is the cause of a DispatchError when the backend ran the tool
// and the tool itself reported failure.
type ToolError struct {
	Message string
}

func (e *ToolError) Error() string { return "tool failed: " + e.Message }

// Unwrap returns ErrToolFailed.
func (e *ToolError) Unwrap() error { return ErrToolFailed }
