package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindTooLarge       ErrKind = "too_large"      // 413
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Stable machine codes surfaced to clients. Do not rename.
const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeTokenRevoked       = "AUTH_TOKEN_REVOKED"
	CodeTokenMissing       = "AUTH_TOKEN_MISSING"
	CodeResetTokenInvalid  = "RESET_TOKEN_INVALID"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"

	CodeEmailExists  = "USER_EMAIL_EXISTS"
	CodeUserNotFound = "USER_NOT_FOUND"

	CodeInvalidJSON  = "VALIDATION_INVALID_JSON"
	CodeMissingField = "VALIDATION_MISSING_FIELD"
	CodeInvalidField = "VALIDATION_INVALID_FIELD"
	CodeBodyTooLarge = "VALIDATION_BODY_TOO_LARGE"

	// store-level lookups; translated before reaching the boundary
	CodeRefreshTokenNotFound = "REFRESH_TOKEN_NOT_FOUND"
	CodeResetTokenNotFound   = "RESET_TOKEN_NOT_FOUND"

	CodeDBUnavailable     = "DB_UNAVAILABLE"
	CodeCacheUnavailable  = "CACHE_UNAVAILABLE"
	CodeBrokerUnavailable = "BROKER_UNAVAILABLE"
	CodeHashFailed        = "HASH_FAILED"
	CodeTokenSignFailed   = "TOKEN_SIGN_FAILED"
	CodeRandomFailed      = "RANDOM_FAILED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code
// - Message: safe summary for clients
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	return CodeOf(err) == code
}

// CodeOf returns the domain code carried by err, or "" for non-domain errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, CodeMissingField, "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, CodeInvalidField, "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrBodyTooLarge(limit int64) *Error {
	return WithMeta(New(KindTooLarge, CodeBodyTooLarge, "request body too large"), map[string]string{
		"limit": strconv.FormatInt(limit, 10),
	})
}

// Unknown, used and expired reset tokens all collapse into this one.
func ErrResetTokenInvalid() *Error {
	return New(KindValidation, CodeResetTokenInvalid, "invalid or expired reset token")
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: unknown email and wrong password must both use this.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "Invalid email or password")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, CodeTokenMissing, "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, CodeTokenInvalid, "Invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, CodeTokenExpired, "Token has expired")
}

// A rotated or logged-out refresh token was presented again.
func ErrTokenRevoked() *Error {
	return New(KindAuth, CodeTokenRevoked, "Token has been revoked")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrAccountLocked() *Error {
	return New(KindForbidden, CodeAccountLocked, "Account is temporarily locked due to too many failed attempts")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, CodeUserNotFound, "User not found")
}

func ErrRefreshTokenNotFound() *Error {
	return New(KindNotFound, CodeRefreshTokenNotFound, "refresh token not found")
}

func ErrResetTokenNotFound() *Error {
	return New(KindNotFound, CodeResetTokenNotFound, "reset token not found")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, CodeEmailExists, "A user with this email already exists")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, CodeRateLimited, "Too many requests. Please try again later."), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrCacheUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeCacheUnavailable, "cache unavailable", cause)
}

func ErrBrokerUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeBrokerUnavailable, "message broker unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, CodeTokenSignFailed, "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRandomFailed, "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
