package core

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable tag carried by every failure surfaced to callers.
// Callers branch on the kind, never on the message.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindValidation ErrorKind = "validation_error"
	KindExecution  ErrorKind = "execution_error"
	KindDiscovery  ErrorKind = "discovery_error"
	// KindMissingInput marks a chained artifact reference that could not be
	// resolved, so the failing stage is identifiable.
	KindMissingInput ErrorKind = "missing_input"
)

// Sentinel errors for comparison using errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrExecution    = errors.New("execution failed")
	ErrDiscovery    = errors.New("discovery failed")
	ErrMissingInput = errors.New("missing input")
)

var sentinels = map[ErrorKind]error{
	KindNotFound:     ErrNotFound,
	KindValidation:   ErrValidation,
	KindExecution:    ErrExecution,
	KindDiscovery:    ErrDiscovery,
	KindMissingInput: ErrMissingInput,
}

// Failure is a typed failure: a kind plus a human-readable message.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"error"`
}

// NewFailure creates a Failure with a formatted message.
func NewFailure(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Is reports whether target is the sentinel for this failure's kind.
func (f *Failure) Is(target error) bool {
	s, ok := sentinels[f.Kind]
	return ok && s == target
}

// KindOf maps an error chain to its ErrorKind.
// Anything unrecognized is an execution error.
func KindOf(err error) ErrorKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	// Most specific first: a missing input is also an execution failure.
	for _, kind := range []ErrorKind{KindMissingInput, KindNotFound, KindValidation, KindDiscovery} {
		if errors.Is(err, sentinels[kind]) {
			return kind
		}
	}
	return KindExecution
}
