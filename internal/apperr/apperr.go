// Package apperr defines the error taxonomy shared by services and handlers.
//
// Domain packages declare their sentinel errors as *Error values and wrap
// them with fmt.Errorf("%w: ...") to add context. Handlers recover the kind
// with KindOf and translate it to an HTTP status with HTTPStatus.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping and logging.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Authentication
	Authorization
	Integrity
	Gateway
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Authentication:
		return "authentication"
	case Authorization:
		return "authorization"
	case Integrity:
		return "integrity"
	case Gateway:
		return "gateway"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a classified error with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err. The message is client-safe, err is not.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the client-safe message of the first *Error in err's
// chain. Unclassified errors never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != Internal {
		return e.Message
	}
	return "Internal server error"
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, Integrity, Conflict:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case Gateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
