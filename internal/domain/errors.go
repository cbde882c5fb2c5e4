package domain

import "errors"

// Services report failures as one of three kinds. The HTTP adapter maps the
// kind to a status code with errors.Is; the kind carries no payload beyond
// itself. An absent entity on a read or delete is not a failure at all.
var (
	// ErrValidation indicates input violating a business rule.
	// HTTP Status: 400 Bad Request
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateUsername indicates a username uniqueness violation on
	// registration.
	// HTTP Status: 409 Conflict
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrUnauthorized indicates a credential mismatch during login.
	// HTTP Status: 401 Unauthorized
	ErrUnauthorized = errors.New("invalid credentials")
)
