package apiclient

import (
	"fmt"
	"net/http"

	"github.com/metinatakli/design-storefront/internal/domain"
)

// APIError is a non-2xx response of the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api responded with status %d", e.StatusCode)
	}

	return fmt.Sprintf("remote api responded with status %d: %s", e.StatusCode, e.Message)
}

// ServerMessage is the message supplied by the remote API, shown to users as is.
func (e *APIError) ServerMessage() string {
	return e.Message
}

// Temporary reports whether the request may succeed when repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) Is(target error) bool {
	return target == domain.ErrRecordNotFound && e.StatusCode == http.StatusNotFound
}
