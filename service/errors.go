package service

import "errors"

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrInternal     = errors.New("internal error")
)

// Error carries a kind, a message that is safe to show to clients and the
// underlying cause, which is not.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func badRequest(msg string) error {
	return &Error{Kind: ErrBadRequest, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func unauthorized(msg string, err error) error {
	return &Error{Kind: ErrUnauthorized, Message: msg, Err: err}
}

func internal(msg string, err error) error {
	return &Error{Kind: ErrInternal, Message: msg, Err: err}
}

// PublicMessage returns the client-facing message of err, or fallback when err
// is not a service error.
func PublicMessage(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
