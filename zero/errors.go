package zero

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures that can occur while handling a turn.
type ErrorKind string

const (
	KindNetworkFailure         ErrorKind = "network_failure"
	KindColdStart              ErrorKind = "cold_start"
	KindTimeout                ErrorKind = "timeout"
	KindExtractionFailure      ErrorKind = "extraction_failure"
	KindUnrecognizedCommand    ErrorKind = "unrecognized_command"
	KindActionExecutionFailure ErrorKind = "action_execution_failure"
)

// Sentinels usable with errors.Is against any *Error of the same kind.
var (
	ErrNetworkFailure         = &Error{Kind: KindNetworkFailure}
	ErrColdStart              = &Error{Kind: KindColdStart}
	ErrTimeout                = &Error{Kind: KindTimeout}
	ErrExtractionFailure      = &Error{Kind: KindExtractionFailure}
	ErrUnrecognizedCommand    = &Error{Kind: KindUnrecognizedCommand}
	ErrActionExecutionFailure = &Error{Kind: KindActionExecutionFailure}
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
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
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a classified error.
func E(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
