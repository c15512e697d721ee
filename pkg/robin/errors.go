package robin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTimeout is returned when a single attempt exceeds its deadline.
	ErrTimeout = errors.New("robin: request timed out")

	// ErrCancelled is returned when the caller's context is cancelled. It
	// matches context.Canceled so retry loops never retry it.
	ErrCancelled = fmt.Errorf("robin: request cancelled: %w", context.Canceled)
)

// NetworkError reports a failed exchange with the service: either a non-2xx
// response (StatusCode set) or a connection-level failure (StatusCode 0).
type NetworkError struct {
	StatusCode int
	// Message is the server's "detail" field when it sent one.
	Message string
	// Details holds the raw response body.
	Details json.RawMessage
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("robin: http status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("robin: http status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("robin: network error: %v", e.Err)
	default:
		return "robin: network error"
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsClientError reports whether the response carried a 4xx status.
func (e *NetworkError) IsClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// newStatusError builds a NetworkError from a non-2xx body. FastAPI style
// {"detail": ...} payloads have their detail lifted into Message.
func newStatusError(status int, body []byte) *NetworkError {
	ne := &NetworkError{StatusCode: status}
	if len(body) > 0 {
		ne.Details = json.RawMessage(body)
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		ne.Details = nil
		if len(body) > 0 {
			ne.Message = string(body)
		}
		return ne
	}

	var detail string
	switch {
	case len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil:
		ne.Message = detail
	case len(payload.Detail) > 0 && string(payload.Detail) != "null":
		ne.Message = string(payload.Detail)
	default:
		ne.Message = payload.Message
	}
	if ne.Message == "" {
		ne.Message = http.StatusText(status)
	}
	return ne
}
