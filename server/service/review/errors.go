package review

import (
	"github.com/pkg/errors"
)

// Review-specific error kinds that can be checked with errors.Is. The HTTP
// layer maps each kind to a distinct status; none of them is ever collapsed
// into a generic failure.
var (
	// ErrNotFound covers missing sessions and questions. Ownership
	// violations are reported as ErrNotFound rather than a forbidden
	// condition so that the existence of other users' rows is never leaked.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation requires an ACTIVE
	// session but the session is COMPLETED or TOMORROW.
	ErrInvalidState = errors.New("session is not active")

	// ErrInvalidArgument is returned when a jump target is not part of
	// the session's question list.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoCandidates is returned when session start or reset finds zero
	// eligible questions after the fallback step.
	ErrNoCandidates = errors.New("no questions available for practice")
)
