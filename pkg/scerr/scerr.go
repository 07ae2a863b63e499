// Package scerr defines the error-kind taxonomy shared by every sc-memory
// component. All fallible operations in this module return an error that
// can be classified with [Of] or [errors.Is] against the sentinel
// values below.
package scerr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// Unspecified is the zero value; [Of] reports it for a nil error or one
	// that is not an [*Error].
	Unspecified Kind = iota

	// InvalidParams marks malformed identifiers, wrong element kinds for an
	// operation, or an empty addr where one is required.
	InvalidParams

	// InvalidState marks an operation attempted on a destroyed context or a
	// subscription made after shutdown.
	InvalidState

	// NotFound marks an addr that is not a live element, or an unresolved
	// system identifier.
	NotFound

	// IO marks an underlying file/channel failure in the content index.
	IO

	// Timeout marks a waiter or wire-protocol read that exceeded its budget.
	Timeout

	// Conflict marks a template-generation clash: a connector variable
	// already bound to a different address (see internal/match).
	Conflict
)

// String returns the lower_snake_case name used in log fields and wire
// protocol error messages.
func (k Kind) String() string {
	switch k {
	case InvalidParams:
		return "invalid_params"
	case InvalidState:
		return "invalid_state"
	case NotFound:
		return "not_found"
	case IO:
		return "io"
	case Timeout:
		return "timeout"
	case Conflict:
		return "conflict"
	default:
		return "unspecified"
	}
}

// Error is the concrete error type returned by sc-memory components. It
// carries a [Kind] so callers can branch on failure category without
// string-matching, while still supporting [errors.Is]/[errors.Unwrap] for
// wrapped causes.
type Error struct {
	Kind Kind
	// Op names the failing operation, e.g. "store.CreateNode".
	Op string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a [*Error] with the same Kind, enabling
// errors.Is(err, scerr.New(scerr.NotFound, "", nil)) style checks as well as
// the sentinel-kind helpers below.
func (e *Error) Is(target error) bool {
	var k *kindSentinel
	if errors.As(target, &k) {
		return e.Kind == k.kind
	}
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New constructs an [*Error] for op with the given kind, optionally wrapping
// cause.
func New(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// kindSentinel lets callers write errors.Is(err, scerr.NotFoundErr) without
// constructing a full [*Error].
type kindSentinel struct{ kind Kind }

func (s *kindSentinel) Error() string { return s.kind.String() }

// Sentinel kind values for use with errors.Is.
var (
	NotFoundErr      error = &kindSentinel{NotFound}
	InvalidParamsErr error = &kindSentinel{InvalidParams}
	InvalidStateErr  error = &kindSentinel{InvalidState}
	IOErr            error = &kindSentinel{IO}
	TimeoutErr       error = &kindSentinel{Timeout}
	ConflictErr      error = &kindSentinel{Conflict}
)

// Of extracts the [Kind] of err, returning [Unspecified] if err is nil or
// not a [*Error].
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unspecified
}
