// Package apierr defines the error kinds every procedure surfaces to its
// callers. Each kind keeps its underlying cause for diagnostics; the
// message is always safe to show to an administrator.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies one of the four caller-facing error categories.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindValidation   Kind = "BAD_REQUEST"
	KindUpstream     Kind = "UPSTREAM_ERROR"
	KindIntegration  Kind = "INTEGRATION_ERROR"
	KindInternal     Kind = "INTERNAL_SERVER_ERROR"
)

// UnauthorizedError means the call carried no valid admin session.
type UnauthorizedError struct {
	Message string
}

// Error implements the error interface.
func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "unauthorized"
	}
	return e.Message
}

// FieldError describes one input field that failed its contract.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError means caller input did not satisfy the operation contract.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// UpstreamError means the HTTP call to the upstream service failed, either
// in transport or with a non-2xx status.
type UpstreamError struct {
	// Op is the operation name, e.g. "listCustomers".
	Op string

	// StatusCode is the upstream HTTP status (0 for transport failures).
	StatusCode int

	// Message is the upstream error message or a generic per-operation one.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// IntegrationError means the upstream answered 2xx with data that breaks
// the output contract.
type IntegrationError struct {
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *IntegrationError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error for error chain support.
func (e *IntegrationError) Unwrap() error {
	return e.Cause
}

// KindOf classifies err by the outermost taxonomy error in its chain.
// Errors outside the taxonomy report KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch e.(type) {
		case *UnauthorizedError:
			return KindUnauthorized
		case *ValidationError:
			return KindValidation
		case *UpstreamError:
			return KindUpstream
		case *IntegrationError:
			return KindIntegration
		}
	}
	return KindInternal
}

// IsTyped reports whether err already belongs to the taxonomy.
func IsTyped(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindInternal
}

// IsNotFound reports whether err is an upstream failure answered with 404.
func IsNotFound(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == http.StatusNotFound
}

// HTTPStatus maps err to the status code the HTTP surface should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindUpstream:
		if IsNotFound(err) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Upstream wraps an unexpected failure as a generic upstream error for op.
func Upstream(op, message string, cause error) *UpstreamError {
	return &UpstreamError{Op: op, Message: message, Cause: cause}
}

// Integration builds an IntegrationError for op.
func Integration(op, message string, cause error) *IntegrationError {
	return &IntegrationError{Op: op, Message: message, Cause: cause}
}

// Describe renders err for logs, including its cause chain.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if cause := errors.Unwrap(err); cause != nil {
		return fmt.Sprintf("%s: %v", err.Error(), cause)
	}
	return err.Error()
}
