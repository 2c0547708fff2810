package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide between retry, skip and abort
type Kind int

const (
	Unknown Kind = iota
	NotFound
	Invalid
	Transient
	Malformed
	MediaTool
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Invalid:
		return "invalid"
	case Transient:
		return "transient_service_failure"
	case Malformed:
		return "malformed_response"
	case MediaTool:
		return "media_tool_failure"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the operation that produced it
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E wraps err with a kind and operation name
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in the chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind == Unknown && e.Err != nil {
			return KindOf(e.Err)
		}
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable is true for transient service failures and malformed replies.
// Both are worth asking again; everything else is final.
func Retryable(err error) bool {
	switch KindOf(err) {
	case Transient, Malformed:
		return true
	}
	return false
}
