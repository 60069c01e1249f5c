package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorKindPreprocess     ErrorKind = "preprocess_error"
	ErrorKindUnknownBackend ErrorKind = "unknown_backend"
	ErrorKindBackend        ErrorKind = "backend_error"
	ErrorKindTimeout        ErrorKind = "timeout_error"
	ErrorKindClassification ErrorKind = "classification_error"
)

// Error is the tagged failure attached to a result slot. It satisfies error so
// adapters can return it through ordinary (string, error) signatures.
type Error struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	BackendID string    `json:"backend_id"`
}

func (e *Error) Error() string {
	if e.BackendID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.BackendID, e.Kind, e.Message)
}

func NewError(kind ErrorKind, backendID, message string) *Error {
	return &Error{Kind: kind, Message: message, BackendID: backendID}
}

// AsError returns err as *Error. Untagged errors become a backend error for
// backendID so that nothing crosses a slot boundary untyped.
func AsError(err error, backendID string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(ErrorKindBackend, backendID, err.Error())
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
