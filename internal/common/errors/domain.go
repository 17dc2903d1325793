package commonerrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "VALIDATION"
	CategoryAuth         ErrorCategory = "AUTH"
	CategoryNotFound     ErrorCategory = "NOT_FOUND"
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
	CategoryInternal     ErrorCategory = "INTERNAL"
	CategoryExternal     ErrorCategory = "EXTERNAL"
)

type DomainError interface {
	error
	Code() string
	Category() ErrorCategory
	HTTPStatus() int
	Message() string
	Unwrap() error
	WithCause(cause error) DomainError
}

type domainError struct {
	code     string
	category ErrorCategory
	status   int
	message  string
	cause    error
}

func (e *domainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *domainError) Code() string {
	return e.code
}

func (e *domainError) Category() ErrorCategory {
	return e.category
}

func (e *domainError) HTTPStatus() int {
	return e.status
}

func (e *domainError) Message() string {
	return e.message
}

func (e *domainError) Unwrap() error {
	return e.cause
}

func (e *domainError) WithCause(cause error) DomainError {
	return &domainError{
		code:     e.code,
		category: e.category,
		status:   e.status,
		message:  e.message,
		cause:    cause,
	}
}

func NewDomainError(code string, category ErrorCategory, status int, message string) DomainError {
	return &domainError{
		code:     code,
		category: category,
		status:   status,
		message:  message,
	}
}

func IsDomainError(err error) bool {
	var de DomainError
	return errors.As(err, &de)
}

func AsDomainError(err error) (DomainError, bool) {
	var de DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Error codes in the AUTH and UNAUTHORIZED categories double as WebSocket
// error frame codes, so their Code() values are lowercase wire identifiers.
var (
	ErrNotAuthenticated = NewDomainError(
		"not_authenticated",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"connection is not authenticated",
	)

	ErrInvalidMessage = NewDomainError(
		"invalid_message",
		CategoryValidation,
		http.StatusBadRequest,
		"malformed or invalid message",
	)

	ErrAuthTimeout = NewDomainError(
		"auth_timeout",
		CategoryAuth,
		http.StatusRequestTimeout,
		"authentication timed out",
	)

	ErrInvalidSession = NewDomainError(
		"invalid_session",
		CategoryAuth,
		http.StatusNotFound,
		"session not found",
	)

	ErrInvalidUser = NewDomainError(
		"invalid_user",
		CategoryAuth,
		http.StatusNotFound,
		"user not found",
	)

	ErrSessionAccessDenied = NewDomainError(
		"session_access_denied",
		CategoryUnauthorized,
		http.StatusForbidden,
		"not a member of the declared session",
	)

	ErrAuthLookupFailed = NewDomainError(
		"auth_error",
		CategoryExternal,
		http.StatusInternalServerError,
		"authentication lookup failed",
	)

	ErrSessionNotFound = NewDomainError(
		"SESSION_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"collaboration session not found",
	)

	ErrUserNotFound = NewDomainError(
		"USER_NOT_FOUND",
		CategoryNotFound,
		http.StatusNotFound,
		"user not found",
	)

	ErrUserNotConnected = NewDomainError(
		"USER_NOT_CONNECTED",
		CategoryNotFound,
		http.StatusNotFound,
		"user not connected",
	)

	ErrMarshalError = NewDomainError(
		"MARSHAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"failed to marshal data",
	)

	ErrSendTimeout = NewDomainError(
		"SEND_TIMEOUT",
		CategoryExternal,
		http.StatusRequestTimeout,
		"send operation timed out",
	)

	ErrInvalidToken = NewDomainError(
		"INVALID_TOKEN",
		CategoryUnauthorized,
		http.StatusUnauthorized,
		"token is not valid",
	)

	ErrMissingRequiredEnv = NewDomainError(
		"MISSING_REQUIRED_ENV",
		CategoryValidation,
		http.StatusInternalServerError,
		"missing required environment variable",
	)

	ErrInvalidJWTSecret = NewDomainError(
		"INVALID_JWT_SECRET",
		CategoryValidation,
		http.StatusInternalServerError,
		"JWT_SECRET must be at least 32 bytes",
	)

	ErrDatabaseError = NewDomainError(
		"DATABASE_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"database operation failed",
	)

	ErrInternalError = NewDomainError(
		"INTERNAL_ERROR",
		CategoryInternal,
		http.StatusInternalServerError,
		"internal server error",
	)
)
