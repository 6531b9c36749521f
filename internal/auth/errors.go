package auth

import (
	"errors"

	"github.com/redmonkez12/natours-api/internal/user"
)

// Error kinds returned by the auth service and guard. Callers select on them
// with errors.Is; the service wraps them with oops codes and context.
var (
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateEmail      = user.ErrDuplicateEmail
	ErrInvalidCredentials  = errors.New("incorrect email or password")
	ErrUnauthenticated     = errors.New("you are not logged in, please log in to get access")
	ErrForbidden           = errors.New("you do not have permission to perform this action")
	ErrResetTokenInvalid   = errors.New("token is invalid")
	ErrResetTokenExpired   = errors.New("token has expired")
	ErrEmailDeliveryFailed = errors.New("there was an error sending the email, try again later")
)

// ValidationError describes a rejected input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap makes errors.Is(err, ErrValidation) hold for every ValidationError
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
