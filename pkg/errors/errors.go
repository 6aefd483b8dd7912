package errors

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBadRequest       = errors.New("bad request")
	ErrInternalServer   = errors.New("internal server error")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrRoomNotFound     = errors.New("room not found")
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrResolutionFailed = errors.New("failed to load conversations")
	ErrNoActiveRoom     = errors.New("no active room")
	ErrNoCredential     = errors.New("session credential missing")
	ErrNotConnected     = errors.New("live connection not available")
	ErrRateLimited      = errors.New("rate limit exceeded")

	ErrHistoryUnavailable = errors.New("failed to load conversation history")
)

// publicServerErrors may be shown to clients as-is; any other 5xx is reported
// as ErrInternalServer.
var publicServerErrors = []error{ErrResolutionFailed, ErrHistoryUnavailable, ErrNotConnected}

type APIError struct {
	Message   string `json:"error"`
	Code      int    `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, code int) *APIError {
	return &APIError{
		Message: message,
		Code:    code,
	}
}

// FromError converts err into the JSON body returned to the presentation layer.
// Server-side failures carry only their sentinel message, never the wrapped
// upstream or database detail.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code := HTTPStatusFromError(err)
	message := err.Error()
	if code >= http.StatusInternalServerError {
		message = ErrInternalServer.Error()
		for _, public := range publicServerErrors {
			if errors.Is(err, public) {
				message = public.Error()
				break
			}
		}
	}

	return &APIError{
		Message:   message,
		Code:      code,
		Retryable: IsRetryable(err),
	}
}

func HTTPStatusFromError(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrNoCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrNoActiveRoom):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrResolutionFailed), errors.Is(err, ErrHistoryUnavailable), errors.Is(err, ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable reports whether the caller should offer a retry affordance.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrResolutionFailed) || errors.Is(err, ErrHistoryUnavailable) || errors.Is(err, ErrNotConnected)
}
