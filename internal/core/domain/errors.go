package domain

import (
	"errors"
	"fmt"
)

// FleetError is a structured error surfaced by the public API and the
// replicated command/query layer. Code identifies the error kind so callers
// can match on it without string comparison.
type FleetError struct {
	Code    string // short error kind, e.g. "no_leader"
	Message string
	Details string
	Cause   error
}

func (e *FleetError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FleetError) Unwrap() error {
	return e.Cause
}

// Is matches another *FleetError by Code, so errors.Is(err, ErrNotFound) works
// even when Details/Cause differ.
func (e *FleetError) Is(target error) bool {
	t, ok := target.(*FleetError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewFleetError(code, message string) *FleetError {
	return &FleetError{Code: code, Message: message}
}

// WithDetails returns a copy carrying additional human-readable context.
func (e *FleetError) WithDetails(details string) *FleetError {
	return &FleetError{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// Wrap returns a copy carrying the underlying cause (e.g. a raw engine error).
func (e *FleetError) Wrap(cause error) *FleetError {
	return &FleetError{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

// Code extracts the FleetError code from err, or "" if err isn't one.
func Code(err error) string {
	var fe *FleetError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Error kinds from §7.
var (
	// ErrNoLeader: retry budget exhausted without a successful leader dispatch.
	ErrNoLeader = NewFleetError("no_leader", "retry budget exhausted, no leader found")

	// ErrNotInactive: activate() called on a node that is already active.
	ErrNotInactive = NewFleetError("not_inactive", "node is already active")

	// ErrInactive: deactivate() called on a node that isn't active.
	ErrInactive = NewFleetError("inactive", "node is not active")

	// ErrAlreadyAdded: add_group targets a name already present and not tombstoned.
	ErrAlreadyAdded = NewFleetError("already_added", "consensus group already exists")

	// ErrNotFound: remove_group (or a query) targets a group that doesn't exist.
	ErrNotFound = NewFleetError("not_found", "consensus group not found")

	// ErrProcessExists: bootstrap delegation RPC found a replica already running.
	ErrProcessExists = NewFleetError("process_exists", "replica process already running")

	// ErrEngine wraps an opaque Raft engine failure; only produced when the
	// compensating remove_group rollback after a bootstrap failure has already
	// been attempted.
	ErrEngine = NewFleetError("engine_error", "raft engine error")
)
