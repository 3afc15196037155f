package signup

import "errors"

// Sentinel errors for the signup service layer.
var (
	ErrNotFound       = errors.New("signup not found")
	ErrDuplicateEmail = errors.New("email is already on the waitlist")
	ErrEmailRequired  = errors.New("email is required")
	ErrInvalidEmail   = errors.New("email address is invalid")
	ErrInvalidStatus  = errors.New("invalid signup status")
)
