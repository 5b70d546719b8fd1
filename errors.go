package authproxy

import (
	"fmt"
	"net/http"
)

// OAuth error codes as constants
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeServerError          = "server_error"
	ErrorCodeAccessDenied         = "access_denied"
	ErrorCodeRateLimitExceeded    = "rate_limit_exceeded"

	// ErrorCodeAuthorizationFailed is the single code returned for any
	// CSRF, session-binding, or state-token failure. The three are never
	// distinguishable from a response.
	ErrorCodeAuthorizationFailed = "authorization_failed"

	// ErrorCodeUpstreamAuthFailure covers identity-provider exchange and
	// user-fetch failures.
	ErrorCodeUpstreamAuthFailure = "upstream_auth_failure"
)

// FlowError represents an OAuth 2.0 error response
type FlowError struct {
	Code        string // OAuth error code (e.g., "invalid_request")
	Description string // Human-readable error description
	Status      int    // HTTP status code
}

// Error implements the error interface
func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewFlowError creates a new flow error
func NewFlowError(code, description string, status int) *FlowError {
	return &FlowError{
		Code:        code,
		Description: description,
		Status:      status,
	}
}

// Common flow errors as reusable constructors
var (
	// ErrInvalidRequest indicates the request is malformed or missing required parameters
	ErrInvalidRequest = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeInvalidRequest, desc, http.StatusBadRequest)
	}

	// ErrInvalidGrant indicates the authorization code is invalid or expired
	ErrInvalidGrant = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeInvalidGrant, desc, http.StatusBadRequest)
	}

	// ErrInvalidClient indicates the client is unknown
	ErrInvalidClient = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeInvalidClient, desc, http.StatusBadRequest)
	}

	// ErrUnsupportedGrantType indicates the grant type is not supported
	ErrUnsupportedGrantType = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeUnsupportedGrantType, desc, http.StatusBadRequest)
	}

	// ErrServerError indicates an internal server error occurred
	ErrServerError = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeServerError, desc, http.StatusInternalServerError)
	}

	// ErrAccessDenied indicates the authenticated user is not on the allowlist
	ErrAccessDenied = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeAccessDenied, desc, http.StatusForbidden)
	}

	// ErrUpstreamAuthFailure indicates the identity provider rejected the
	// code exchange or the user fetch failed
	ErrUpstreamAuthFailure = func(desc string) *FlowError {
		return NewFlowError(ErrorCodeUpstreamAuthFailure, desc, http.StatusBadGateway)
	}
)

// ErrAuthorizationFailed is the coalesced error for CSRF, session-binding,
// and state-token failures. Always the same code, description, and status
// regardless of which check failed.
func ErrAuthorizationFailed() *FlowError {
	return NewFlowError(ErrorCodeAuthorizationFailed, "authorization request could not be verified", http.StatusBadRequest)
}
