package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code, so a re-worded or wrapped copy still matches its sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// WithMessage returns a copy of the error carrying a more specific message
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
	}
}

// Predefined domain errors
var (
	// User errors
	ErrUserNotFound  = NewDomainError("USER_NOT_FOUND", "user not found")
	ErrAccountExists = NewDomainError("ACCOUNT_EXISTS", "Account already exists")
	ErrInvalidEmail  = NewDomainError("INVALID_CREDENTIALS", "Invalid email")
	ErrInvalidPass   = NewDomainError("INVALID_CREDENTIALS", "Invalid password")
	ErrUnconfirmed   = NewDomainError("EMAIL_UNCONFIRMED", "Email not confirmed")

	// Authentication errors
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Could not validate credentials")
	ErrInvalidToken        = NewDomainError("INVALID_TOKEN", "Could not validate credentials")
	ErrWrongScope          = NewDomainError("WRONG_SCOPE", "Invalid scope for token")
	ErrInvalidRefreshToken = NewDomainError("INVALID_REFRESH_TOKEN", "Invalid refresh token")
	ErrBadEmailToken       = NewDomainError("BAD_EMAIL_TOKEN", "Invalid token for email verification")
	ErrVerification        = NewDomainError("VERIFICATION_ERROR", "Verification error")

	// Contact errors
	ErrContactNotFound    = NewDomainError("CONTACT_NOT_FOUND", "Contact not found")
	ErrContactEmailExists = NewDomainError("CONTACT_EMAIL_EXISTS", "Contact with this email already exists")
	ErrNoUpcomingBirthday = NewDomainError("NO_UPCOMING_BIRTHDAYS", "No upcoming birthdays")

	// Validation errors
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "invalid input")

	// System errors
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "internal server error")
	ErrServiceUnavailable = NewDomainError("SERVICE_UNAVAILABLE", "service unavailable")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	// Check if it's a domain error
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	// Default to internal server error for unknown errors
	return http.StatusInternalServerError
}

// domainErrorToHTTPStatus maps specific domain errors to HTTP status codes
func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "VERIFICATION_ERROR":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INVALID_TOKEN",
		"WRONG_SCOPE", "INVALID_REFRESH_TOKEN", "EMAIL_UNCONFIRMED":
		return http.StatusUnauthorized

	// 404 Not Found
	case "USER_NOT_FOUND", "CONTACT_NOT_FOUND", "NO_UPCOMING_BIRTHDAYS":
		return http.StatusNotFound

	// 409 Conflict
	case "ACCOUNT_EXISTS", "CONTACT_EMAIL_EXISTS":
		return http.StatusConflict

	// 422 Unprocessable Entity
	case "BAD_EMAIL_TOKEN":
		return http.StatusUnprocessableEntity

	// 503 Service Unavailable
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable

	// 500 Internal Server Error (default)
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
