package jwt

import (
	"errors"
	"fmt"
)

// Sentinel errors for token validation. Each one identifies a terminal
// failure kind; callers classify with errors.Is.
var (
	// ErrEmptyToken indicates that the token is empty or blank.
	ErrEmptyToken = errors.New("token is empty")

	// ErrTokenMalformed indicates that the token structure cannot be parsed.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrInvalidSignature indicates that the token signature does not verify.
	ErrInvalidSignature = errors.New("token signature is invalid")

	// ErrUnsupportedFormat indicates that the signing algorithm or token
	// format is not accepted.
	ErrUnsupportedFormat = errors.New("token algorithm or format is not accepted")

	// ErrTokenExpired indicates that the token expiration is at or before now.
	ErrTokenExpired = errors.New("token has expired")

	// ErrClaimMismatch indicates that the issuer or audience does not match
	// the required value, or a required registered claim is absent.
	ErrClaimMismatch = errors.New("token claim mismatch")

	// ErrTokenRevoked indicates that the token is present in the revocation store.
	ErrTokenRevoked = errors.New("token has been revoked")

	// ErrInvalidTokenType indicates that the token type claim is missing or
	// not a member of the allowed set.
	ErrInvalidTokenType = errors.New("token type is not allowed")

	// ErrInvalidClaims indicates that the claim policy checks failed.
	ErrInvalidClaims = errors.New("token claims are invalid")

	// ErrRevocationUnavailable indicates that the revocation store could not
	// be queried and the validator runs fail-closed.
	ErrRevocationUnavailable = errors.New("revocation store is unavailable")
)

// ValidationError represents a token validation failure with details.
type ValidationError struct {
	Message string
	Cause   error
	Claims  *Claims
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("token validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("token validation error: %s", e.Message)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok || errors.Is(e.Cause, target)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
	}
}

// NewValidationErrorWithClaims creates a new ValidationError carrying the
// claims that were decoded before the failure.
func NewValidationErrorWithClaims(message string, cause error, claims *Claims) *ValidationError {
	return &ValidationError{
		Message: message,
		Cause:   cause,
		Claims:  claims,
	}
}

// IsExpiredError checks if an error indicates token expiration.
func IsExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
