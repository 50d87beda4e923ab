package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUsernameRequired   = errors.New("username required for signup")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrInvalidToken       = errors.New("could not validate credentials")
	ErrInvalidScore       = errors.New("invalid score value")
	ErrInvalidGameMode    = errors.New("invalid game mode")
	ErrInvalidSnapshot    = errors.New("invalid game snapshot")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInternalError      = errors.New("internal server error")
)

// IsNotFound checks if an error is a not-found type error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrGameNotFound)
}

// IsConflict checks if an error is a unique-constraint violation on creation
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken)
}

// IsValidation checks if an error was caused by a malformed or incomplete request
func IsValidation(err error) bool {
	return errors.Is(err, ErrUsernameRequired) ||
		errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrInvalidGameMode) ||
		errors.Is(err, ErrInvalidSnapshot) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsUnauthorized checks if an error should surface as a 401
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidToken)
}
