package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so responses never disclose which one failed.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("INVALID_CREDENTIALS")

// ErrDuplicateEmail signals a registration against an email that is taken
var ErrDuplicateEmail = errors.New("an account with this email already exists", errors.CategoryConflict).
	WithTextCode("DUPLICATE_EMAIL")

// ErrTokenExpired is returned when a session token is past its expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_EXPIRED")

// ErrTokenMalformed covers undecodable tokens and bad signatures
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOKEN_MALFORMED")

// ErrNoRefreshToken is the error when the refresh cookie is absent
var ErrNoRefreshToken = errors.New("no refresh token provided", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("NO_REFRESH_TOKEN")

// ErrUserNotFound is returned when a token references a user that no
// longer exists in the store.
var ErrUserNotFound = errors.New("user not found", errors.CategoryAuth).
	WithTextCode("USER_NOT_FOUND")

// ErrTooManyLoginAttempts enforces the login cool-down window
var ErrTooManyLoginAttempts = errors.New("too many login attempts, try again later", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode("TOO_MANY_ATTEMPTS")

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryBadInput).
	WithTextCode("EMPTY_VALUE")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsDuplicateEmailError matches the application-level check and the UNIQUE
// constraint violation raised when two registrations race.
func IsDuplicateEmailError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateEmail) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed: users.email") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
