package errs

import "errors"

// Kind classifies an error so the transport layer can map it to a status
// code without inspecting messages.
type Kind int

const (
	// Validation marks malformed input; no state was changed.
	Validation Kind = iota + 1
	// Conflict marks a uniqueness collision (email/phone already taken).
	Conflict
	// NotFound marks an unknown account or a structurally invalid id.
	NotFound
	// Auth marks a wrong password, PIN, or one-time code.
	Auth
	// Dependency marks a failed storage or transport call.
	Dependency
)

// Error carries a kind, a client-safe message, and an optional cause.
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

// New builds an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or zero if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
