// Package skyerr defines the typed failures the sky engine reports. Every
// per-request error carries a Kind so the HTTP layer can map it to a status
// code without string matching, and so no failure is ever coerced into a
// default value further down the pipeline.
package skyerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of engine failure.
type Kind string

const (
	InvalidTimestamp     Kind = "InvalidTimestamp"
	InvalidLocation      Kind = "InvalidLocation"
	InvalidWindow        Kind = "InvalidWindow"
	MalformedElementSet  Kind = "MalformedElementSet"
	PropagationError     Kind = "PropagationError"
	EphemerisUnavailable Kind = "EphemerisUnavailable"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrInvalidTimestamp     = &Error{Kind: InvalidTimestamp}
	ErrInvalidLocation      = &Error{Kind: InvalidLocation}
	ErrInvalidWindow        = &Error{Kind: InvalidWindow}
	ErrMalformedElementSet  = &Error{Kind: MalformedElementSet}
	ErrPropagation          = &Error{Kind: PropagationError}
	ErrEphemerisUnavailable = &Error{Kind: EphemerisUnavailable}
)

// Error is a structured engine failure: a kind plus a human-readable detail.
// Err optionally holds the underlying cause.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an *Error of the given kind with a formatted detail.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the Kind of the first *Error in err's chain. The second
// result is false when err carries no engine kind.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// DetailOf returns the human-readable detail of the first *Error in err's
// chain, falling back to err.Error().
func DetailOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		if e.Err != nil {
			return e.Detail + ": " + e.Err.Error()
		}
		return e.Detail
	}
	return err.Error()
}
