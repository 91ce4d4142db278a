// Package failure defines the error taxonomy shared by the storefront's
// domain services. Handlers map these types to HTTP statuses in one place.
package failure

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested order, payment or record does not
// exist. Vendor 404 responses match it through VendorError.Is.
var ErrNotFound = errors.New("not found")

// ConfigError reports required configuration that is absent. It is detected
// before any network call and is never retried.
type ConfigError struct {
	Component string
	Missing   []string
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s configuration not complete: missing %s", e.Component, strings.Join(e.Missing, ", "))
}

// ValidationError reports malformed or incomplete caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid is shorthand for a ValidationError on field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// VendorError is a non-success response from an upstream platform.
type VendorError struct {
	StatusCode int
	Category   string
	Code       string
	Message    string
}

func (e *VendorError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports vendor 404 responses as ErrNotFound.
func (e *VendorError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// HTTPStatus returns the vendor status when it is a client or server error,
// otherwise 500.
func (e *VendorError) HTTPStatus() int {
	if e.StatusCode >= 400 && e.StatusCode <= 599 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// ReconciliationError wraps a failed post-payment order update. The payment
// already succeeded, so callers log it and move on.
type ReconciliationError struct {
	OrderID string
	Err     error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile order %s: %v", e.OrderID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
