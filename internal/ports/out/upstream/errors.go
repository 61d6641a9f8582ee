// Package upstream defines the error contract shared by the backend service clients.
package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is returned by upstream clients when a backend answered with a non-2xx status.
// Message is the backend's own error text when the response body carried one.
type StatusError struct {
	Service string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Service, e.Status)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// Message returns the backend-supplied error text, or "" when the error carries none.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}
