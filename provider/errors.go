package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when the upstream answers without content.
var ErrEmptyResponse = errors.New("provider: no content in response")

// StatusError is a non-2xx response from the upstream.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider: upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("provider: upstream returned %d: %s", e.StatusCode, e.Message)
}

// Retryable reports whether the same request could succeed later.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
