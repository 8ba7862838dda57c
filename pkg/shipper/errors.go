package shipper

import (
	"errors"
	"fmt"
)

// Error codes used by ShipperError.
const (
	CodeUnserviceable      = "UNSERVICEABLE"
	CodeTransport          = "TRANSPORT_ERROR"
	CodeMalformedResponse  = "MALFORMED_RESPONSE"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)

// ShipperError represents an error from a rate provider.
type ShipperError struct {
	Carrier    string
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ShipperError. Errors match by code, and each
// code also matches its sentinel.
func (e *ShipperError) Is(target error) bool {
	if t, ok := target.(*ShipperError); ok {
		return e.Code == t.Code
	}
	if sentinel, ok := codeSentinels[e.Code]; ok {
		return target == sentinel
	}
	return false
}

// NewShipperError creates a new ShipperError.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// Sentinel errors for common quoting scenarios.
var (
	// ErrUnserviceable indicates the package cannot be quoted (e.g., no destination postcode).
	ErrUnserviceable = errors.New("package not serviceable")

	// ErrTransport indicates the remote call failed or returned nothing.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse indicates the remote body could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrInvalidCredentials indicates the stored API key or store domain was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderNotFound indicates the requested provider is not registered.
	ErrProviderNotFound = errors.New("provider not found")
)

var codeSentinels = map[string]error{
	CodeUnserviceable:      ErrUnserviceable,
	CodeTransport:          ErrTransport,
	CodeMalformedResponse:  ErrMalformedResponse,
	CodeInvalidCredentials: ErrInvalidCredentials,
}

// Outcome returns a short metrics label describing err.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnserviceable):
		return "unserviceable"
	case errors.Is(err, ErrTransport):
		return "transport_error"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrProviderNotFound):
		return "provider_not_found"
	default:
		return "error"
	}
}
