package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/userhub/userhub-admin-go/pkg/transport"
)

// ErrorCode is the coarse failure classification shared by every operation in
// the SDK. It is derived from the transport outcome (HTTP status, network
// failure, cancellation) and is always populated on an AuthError.
type ErrorCode string

const (
	// InvalidArgument means the backend rejected the request payload.
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// FailedPrecondition means the request cannot run in the current
	// project state.
	FailedPrecondition ErrorCode = "FAILED_PRECONDITION"

	// OutOfRange means a requested value was outside the permitted range.
	OutOfRange ErrorCode = "OUT_OF_RANGE"

	// Unauthenticated means the request carried no valid credential.
	Unauthenticated ErrorCode = "UNAUTHENTICATED"

	// PermissionDenied means the credential lacks access to the resource.
	PermissionDenied ErrorCode = "PERMISSION_DENIED"

	// NotFound means the requested resource does not exist.
	NotFound ErrorCode = "NOT_FOUND"

	// Aborted means the operation was aborted by the backend, typically
	// due to a concurrency conflict.
	Aborted ErrorCode = "ABORTED"

	// AlreadyExists means the resource a caller tried to create exists.
	AlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Conflict means the request conflicts with the current state of the
	// resource.
	Conflict ErrorCode = "CONFLICT"

	// ResourceExhausted means the project ran out of API quota.
	ResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"

	// Cancelled means the caller cancelled the operation.
	Cancelled ErrorCode = "CANCELLED"

	// DataLoss means unrecoverable data loss or corruption on the backend.
	DataLoss ErrorCode = "DATA_LOSS"

	// Unknown covers statuses the SDK has no finer classification for.
	Unknown ErrorCode = "UNKNOWN"

	// Internal means the backend failed while processing the request.
	Internal ErrorCode = "INTERNAL"

	// NotImplemented means the backend does not support the operation.
	NotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Unavailable means the backend could not be reached or answered with
	// a transient availability failure.
	Unavailable ErrorCode = "UNAVAILABLE"

	// DeadlineExceeded means the operation ran past its context deadline.
	DeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
)

// AuthErrorCode is the fine-grained failure reason for authentication
// operations. The set is closed: the backend publishes exactly these reason
// tokens, and anything it adds later surfaces through the coarse ErrorCode
// until the SDK learns the new member.
type AuthErrorCode string

const (
	// EmailAlreadyExists means another account already uses the email.
	EmailAlreadyExists AuthErrorCode = "EMAIL_ALREADY_EXISTS"

	// InvalidDynamicLinkDomain means the dynamic link domain in an action
	// code request is not authorized for the project.
	InvalidDynamicLinkDomain AuthErrorCode = "INVALID_DYNAMIC_LINK_DOMAIN"

	// PhoneNumberAlreadyExists means another account already uses the
	// phone number.
	PhoneNumberAlreadyExists AuthErrorCode = "PHONE_NUMBER_ALREADY_EXISTS"

	// UIDAlreadyExists means another account already uses the uid.
	UIDAlreadyExists AuthErrorCode = "UID_ALREADY_EXISTS"

	// UnauthorizedContinueURL means the continue URL domain in an action
	// code request is not whitelisted for the project.
	UnauthorizedContinueURL AuthErrorCode = "UNAUTHORIZED_CONTINUE_URL"

	// UserNotFound means no user record matched the lookup.
	UserNotFound AuthErrorCode = "USER_NOT_FOUND"
)

// AuthError is the structured error produced by every failed SDK operation.
// Code is always set and Message is never empty. AuthCode is set only when
// the backend supplied a recognized reason token; DeprecatedCode is set only
// by NewLegacyAuthError, and the two are never both present on one value.
//
// The factory functions enforce those invariants at construction time;
// hand-built values skip them.
type AuthError struct {
	// Code is the coarse classification, always present.
	Code ErrorCode

	// AuthCode is the fine-grained reason; empty when the backend gave no
	// recognizable reason token.
	AuthCode AuthErrorCode

	// Message is a human-readable description, never empty.
	Message string

	// DeprecatedCode is the free-text code of the legacy construction
	// path; empty on the modern path.
	DeprecatedCode string

	// Response is the raw backend response snapshot, when one exists.
	Response *transport.Response

	// Err is the underlying cause, when one exists.
	Err error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	switch {
	case e.AuthCode != "":
		return fmt.Sprintf("auth %s error (%s): %s", e.Code, e.AuthCode, e.Message)
	case e.DeprecatedCode != "":
		return fmt.Sprintf("auth %s error (legacy %s): %s", e.Code, e.DeprecatedCode, e.Message)
	default:
		return fmt.Sprintf("auth %s error: %s", e.Code, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewLegacyAuthError builds an AuthError from a free-text code string. It is
// the compatibility path for callers migrated from the era before typed
// reason tokens: the result carries only the legacy code and the message,
// with the coarse code fixed at Unknown. It never sets AuthCode or Response,
// and deliberately drops any response or cause the caller might hold.
func NewLegacyAuthError(code, message string) (*AuthError, error) {
	if code == "" {
		return nil, errors.New("legacy error code must not be empty")
	}

	if message == "" {
		return nil, errors.New("error message must not be empty")
	}

	return &AuthError{
		Code:           Unknown,
		Message:        message,
		DeprecatedCode: code,
	}, nil
}

// classifyError is the single normalization point from a failed backend call
// to an AuthError. It is total: every non-nil input yields exactly one
// AuthError. Errors that already are AuthErrors pass through unchanged, so
// applying the classifier twice is safe.
func classifyError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	if errors.Is(err, transport.ErrQuotaExceeded) {
		return &AuthError{
			Code:    ResourceExhausted,
			Message: "api quota exhausted, request blocked before send",
			Err:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AuthError{
			Code:    DeadlineExceeded,
			Message: "deadline exceeded while calling the userhub backend",
			Err:     err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &AuthError{
			Code:    Cancelled,
			Message: "operation cancelled by caller",
			Err:     err,
		}
	}

	var apiErr *transport.Error
	if errors.As(err, &apiErr) {
		return newAuthError(apiErr, err)
	}

	// No HTTP status anywhere in the chain: dial failures, read failures,
	// undecodable response bodies.
	return &AuthError{
		Code:    Unavailable,
		Message: fmt.Sprintf("failed to reach the userhub backend: %v", err),
		Err:     err,
	}
}

// newAuthError is the modern factory: it maps a backend response error to the
// coarse code, matches the reason token against the closed AuthErrorCode set,
// and attaches the response snapshot plus the full cause chain. An
// unrecognized reason token is not an error; it just leaves AuthCode empty.
func newAuthError(apiErr *transport.Error, cause error) *AuthError {
	msg := apiErr.Message
	if msg == "" {
		msg = http.StatusText(apiErr.StatusCode)
	}
	if msg == "" {
		msg = "unexpected response from the userhub backend"
	}

	return &AuthError{
		Code:     codeFromStatus(apiErr.StatusCode),
		AuthCode: authCodeFromReason(apiErr.Reason),
		Message:  msg,
		Response: apiErr.Response,
		Err:      cause,
	}
}

// codeFromStatus maps an HTTP status to the coarse error code.
func codeFromStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return InvalidArgument
	case http.StatusUnauthorized:
		return Unauthenticated
	case http.StatusForbidden:
		return PermissionDenied
	case http.StatusNotFound:
		return NotFound
	case http.StatusConflict:
		return Conflict
	case http.StatusTooManyRequests:
		return ResourceExhausted
	case http.StatusInternalServerError:
		return Internal
	case http.StatusNotImplemented:
		return NotImplemented
	case http.StatusServiceUnavailable:
		return Unavailable
	default:
		return Unknown
	}
}

// authCodeFromReason matches a backend reason token against the closed
// AuthErrorCode set. The match is exact and case-sensitive; anything else
// returns the empty code.
func authCodeFromReason(reason string) AuthErrorCode {
	switch code := AuthErrorCode(reason); code {
	case EmailAlreadyExists,
		InvalidDynamicLinkDomain,
		PhoneNumberAlreadyExists,
		UIDAlreadyExists,
		UnauthorizedContinueURL,
		UserNotFound:
		return code
	default:
		return ""
	}
}

// CodeOf returns the coarse code of the AuthError in err's chain, or the
// empty code when the chain contains none.
func CodeOf(err error) ErrorCode {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Code
	}
	return ""
}

// AuthCodeOf returns the fine-grained code of the AuthError in err's chain.
// It is empty both when the chain contains no AuthError and when the
// AuthError carries no recognized reason.
func AuthCodeOf(err error) AuthErrorCode {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.AuthCode
	}
	return ""
}

// IsEmailAlreadyExists reports whether err is an AuthError caused by an
// email collision.
func IsEmailAlreadyExists(err error) bool {
	return AuthCodeOf(err) == EmailAlreadyExists
}

// IsInvalidDynamicLinkDomain reports whether err is an AuthError caused by
// an unauthorized dynamic link domain.
func IsInvalidDynamicLinkDomain(err error) bool {
	return AuthCodeOf(err) == InvalidDynamicLinkDomain
}

// IsPhoneNumberAlreadyExists reports whether err is an AuthError caused by a
// phone number collision.
func IsPhoneNumberAlreadyExists(err error) bool {
	return AuthCodeOf(err) == PhoneNumberAlreadyExists
}

// IsUIDAlreadyExists reports whether err is an AuthError caused by a uid
// collision.
func IsUIDAlreadyExists(err error) bool {
	return AuthCodeOf(err) == UIDAlreadyExists
}

// IsUnauthorizedContinueURL reports whether err is an AuthError caused by an
// unauthorized continue URL domain.
func IsUnauthorizedContinueURL(err error) bool {
	return AuthCodeOf(err) == UnauthorizedContinueURL
}

// IsUserNotFound reports whether err is an AuthError for a lookup that
// matched no user record.
func IsUserNotFound(err error) bool {
	return AuthCodeOf(err) == UserNotFound
}
