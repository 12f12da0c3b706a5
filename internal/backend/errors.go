package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the session is missing, expired or was rejected with 401.
	ErrUnauthorized = errors.New("authentication required")
	// ErrForbidden means the backend refused the operation for this role (403).
	ErrForbidden = errors.New("permission denied")
)

// APIError is a non-2xx reply from the backend.
type APIError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: backend returned %d", e.Op, e.StatusCode)
}

// Is lets callers match 401/403 replies with errors.Is.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	}
	return false
}

// ServerError reports a 5xx reply.
func (e *APIError) ServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// NetworkError means the backend could not be reached at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err came from a failed transport rather than a backend reply.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// parseDetail extracts FastAPI's "detail" field. Validation errors carry a
// list there; it is returned as raw JSON text.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}
	if string(payload.Detail) == "null" {
		return ""
	}
	return string(payload.Detail)
}
