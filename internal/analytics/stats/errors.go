package stats

import (
	"errors"
	"fmt"
)

// Kind classifies a recoverable engine failure.
type Kind string

const (
	KindInsufficientData Kind = "insufficient_data"
	KindDegenerateInput  Kind = "degenerate_input"
	KindShapeMismatch    Kind = "shape_mismatch"
	KindInvalidParameter Kind = "invalid_parameter"
)

// Error is the single error type returned by the analytics engine. It never
// carries patient identifiers: the engine only ever sees numeric arrays.
type Error struct {
	Kind    Kind
	Message string
	// Err optionally narrows the kind, e.g. psa.ErrNonRisingPSA.
	Err error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when the target is one of the
// package sentinels (which carry no message).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInsufficientData = &Error{Kind: KindInsufficientData}
	ErrDegenerateInput  = &Error{Kind: KindDegenerateInput}
	ErrShapeMismatch    = &Error{Kind: KindShapeMismatch}
	ErrInvalidParameter = &Error{Kind: KindInvalidParameter}
)

func Insufficientf(format string, args ...interface{}) error {
	return &Error{Kind: KindInsufficientData, Message: fmt.Sprintf(format, args...)}
}

func Degeneratef(format string, args ...interface{}) error {
	return &Error{Kind: KindDegenerateInput, Message: fmt.Sprintf(format, args...)}
}

func ShapeMismatchf(format string, args ...interface{}) error {
	return &Error{Kind: KindShapeMismatch, Message: fmt.Sprintf(format, args...)}
}

func InvalidParameterf(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidParameter, Message: fmt.Sprintf(format, args...)}
}

// Problem is the structured error payload handed to callers instead of a
// failure: `{"error": kind, "message": ...}`.
type Problem struct {
	Error   Kind   `json:"error"`
	Message string `json:"message"`
}

// AsProblem converts an engine error into its payload. It returns nil for a
// nil error and for errors that did not originate in the engine.
func AsProblem(err error) *Problem {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}
	return &Problem{Error: e.Kind, Message: e.Error()}
}

// KindOf reports the kind of an engine error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
