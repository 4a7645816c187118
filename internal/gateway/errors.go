package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoFallback is returned when the backend is unreachable and no demo
// payload is registered for the endpoint.
var ErrNoFallback = errors.New("no fallback data available")

// APIError is a failed call. Status 0 means the request never got an HTTP
// answer (refused, reset, timed out).
type APIError struct {
	Method string
	Path   string
	Status int
	Body   []byte
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

func (e *APIError) Unwrap() error { return e.Err }

// Message pulls the backend's error text out of the body. The backend is not
// consistent about the key.
func (e *APIError) Message() string {
	var body map[string]any
	if len(e.Body) == 0 || json.Unmarshal(e.Body, &body) != nil {
		return ""
	}
	for _, key := range []string{"mensaje", "message", "error"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Asleep reports whether err looks like a backend that is still booting:
// no HTTP answer at all, or a 5xx.
func Asleep(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 0 || apiErr.Status >= 500
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
