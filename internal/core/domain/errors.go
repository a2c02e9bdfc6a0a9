package domain

import (
	"errors"
	"strings"
)

// Error kinds returned from the use cases. Adapters wrap their own failures
// into one of these so callers can branch with errors.Is.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTransport        = errors.New("transport failure")
	ErrValidation       = errors.New("validation failure")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is the list of everything wrong with a submitted form.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failure: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for any ValidationErrors.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Transport marks err as a persistence/storage failure while keeping the cause.
func Transport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) || errors.Is(err, ErrNotFound) {
		return err
	}
	return &transportError{cause: err}
}

type transportError struct {
	cause error
}

func (e *transportError) Error() string { return "transport failure: " + e.cause.Error() }

func (e *transportError) Unwrap() []error { return []error{ErrTransport, e.cause} }
