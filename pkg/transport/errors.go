package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrQuotaExceeded is returned when the shared quota tracker blocks a
	// request before it leaves the process.
	ErrQuotaExceeded = errors.New("api quota exceeded")
)

// Error represents a UserHub API error with additional context.
type Error struct {
	StatusCode int
	Class      ErrorClass
	Reason     string
	Message    string
	Response   *Response
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("userhub %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("userhub %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// errorBody mirrors the backend error envelope:
// {"error": {"code": 404, "message": "...", "reason": "USER_NOT_FOUND"}}
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// newAPIError builds an *Error from a non-2xx response. The backend error
// envelope supplies message and reason token when it parses; otherwise the
// HTTP status text stands in so the message is never empty.
func newAPIError(resp *Response, class ErrorClass) *Error {
	e := &Error{
		StatusCode: resp.StatusCode,
		Class:      class,
		Message:    http.StatusText(resp.StatusCode),
		Response:   resp,
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if body.Error.Message != "" {
			e.Message = body.Error.Message
		}
		e.Reason = body.Error.Reason
	}

	return e
}

// classFromError extracts the error class for retry decisions. Errors that
// did not come from an HTTP status (dial failures, read failures) count as
// network errors.
func classFromError(err error) ErrorClass {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ErrorClassNetwork
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassClient:
		// 4xx errors should NOT be retried (the request itself is wrong)
		return false
	case ErrorClassServer:
		// 5xx server errors should be retried
		return true
	case ErrorClassRateLimit:
		// 429 quota errors should be retried
		return true
	case ErrorClassNetwork:
		// Network errors should be retried
		return true
	default:
		return false
	}
}
