package errors

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// UnsupportedMessageError indicates a controller message whose type this worker does not handle.
type UnsupportedMessageError struct {
	Kind string
}

// Error is an implementation of the error interface.
func (e *UnsupportedMessageError) Error() string {
	return fmt.Sprintf("unsupported message type: %s", e.Kind)
}

// NoActiveSessionError indicates a session-scoped request arrived while no session was running.
type NoActiveSessionError struct {
	SessionID uuid.UUID
}

// Error is an implementation of the error interface.
func (e *NoActiveSessionError) Error() string {
	return fmt.Sprintf("no active build session for %q", e.SessionID)
}

// UnknownTargetError indicates that a requested target id could not be resolved.
type UnknownTargetError struct {
	TypeID   string
	TargetID string
}

// Error is an implementation of the error interface.
func (e *UnknownTargetError) Error() string {
	return fmt.Sprintf("unknown %s target id: %q", e.TypeID, e.TargetID)
}
