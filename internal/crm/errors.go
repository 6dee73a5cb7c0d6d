package crm

import (
	"errors"
	"fmt"
)

// ErrNotFound is the remote platform's negative lookup result. It is a valid
// answer ("no such contact"), not a failure.
var ErrNotFound = errors.New("crm: contact not found")

// PermissionError is a 403 from the remote API. It almost always means the
// API key lacks a scope or points at the wrong location, so callers surface
// it loudly while still making forward progress where they can.
type PermissionError struct {
	Operation string
	Body      string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("crm: permission denied during %s: %s", e.Operation, e.Body)
}

// ConflictError is a create rejected because the contact already exists. The
// remote response embeds the existing contact id, which callers recover
// instead of treating the create as fatal.
type ConflictError struct {
	ContactID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("crm: contact already exists with id %s", e.ContactID)
}

// APIError is any other non-2xx response.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm: %s failed: status=%d message=%s", e.Operation, e.StatusCode, e.Body)
}

// IsTransient reports whether the failure is a server-side condition worth
// retrying.
func (e *APIError) IsTransient() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}
