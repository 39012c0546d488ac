package domain

import "errors"

// Error kinds. Every error returned by the core unwraps to one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTransient     = errors.New("transient failure")
)

var (
	ErrPollNotFound   = newError(ErrNotFound, "poll not found")
	ErrOptionNotFound = newError(ErrNotFound, "option not found")
	ErrVoteNotFound   = newError(ErrNotFound, "no vote found for this poll")
	ErrUserNotFound   = newError(ErrNotFound, "user not found")

	ErrPollClosed     = newError(ErrInvalidState, "poll is closed")
	ErrOptionMismatch = newError(ErrInvalidState, "option does not belong to this poll")

	ErrForbidden          = newError(ErrUnauthorized, "not allowed to modify this poll")
	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid email or password")
	ErrInvalidToken       = newError(ErrUnauthorized, "invalid or expired token")

	ErrVoteExists = newError(ErrAlreadyExists, "vote already exists")
	ErrEmailTaken = newError(ErrAlreadyExists, "email is already in use")

	ErrInvalidPollID = newError(ErrInvalidInput, "invalid poll id")
	ErrInvalidRole   = newError(ErrInvalidInput, "invalid role")
)

type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// Invalid builds a validation error carrying msg.
func Invalid(msg string) error {
	return newError(ErrInvalidInput, msg)
}

// Message returns the text of the most specific domain error in err's chain, or fallback when
// err carries none.
func Message(err error, fallback string) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return fallback
}
