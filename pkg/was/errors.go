package was

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/webscan-io/was/v2/internal/constants"
)

// ErrorKind classifies an API failure. Every error surfaced by the transport
// carries exactly one kind, so callers can branch without string matching.
type ErrorKind string

const (
	// ErrorKindThrottled means the service rejected the request with HTTP 429
	// and the retry budget was exhausted.
	ErrorKindThrottled ErrorKind = "throttled"

	// ErrorKindConnectivity means the request never produced an HTTP response
	// (DNS failure, refused connection, timeout).
	ErrorKindConnectivity ErrorKind = "connectivity"

	// ErrorKindServerFault means the service answered with a 5xx status.
	ErrorKindServerFault ErrorKind = "server fault"

	// ErrorKindClientRequest means the service rejected the request with a
	// non-retryable 4xx status.
	ErrorKindClientRequest ErrorKind = "client request"

	// ErrorKindNotFound means the service answered with HTTP 404.
	ErrorKindNotFound ErrorKind = "not found"

	// ErrorKindResponseParse means the service answered with a success status
	// but the body was not valid JSON.
	ErrorKindResponseParse ErrorKind = "response parse"

	// ErrorKindProxy means the configured proxy could not relay the request.
	ErrorKindProxy ErrorKind = "proxy"
)

// APIError represents a failed call against the scanning service. It keeps
// the original status code and raw payload so nothing is lost between the
// wire and the caller.
type APIError struct {
	Kind       ErrorKind `json:"kind"        yaml:"kind"`
	StatusCode int       `json:"status_code" yaml:"status_code"`
	Message    string    `json:"message"     yaml:"message"`
	URL        string    `json:"url"         yaml:"url"`
	Attempts   int       `json:"attempts"    yaml:"attempts"`
	Body       []byte    `json:"-"           yaml:"-"`
	Err        error     `json:"-"           yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Kind, e.Message, e.StatusCode)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport or parse error, if any.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ValidationError reports malformed input detected before any network call
// is made.
type ValidationError struct {
	Message string `json:"message" yaml:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// Common validation errors raised by the bulk driver and resource clients.
var (
	ErrNoIdentifiers = NewValidationError("at least one identifier is required")
	ErrEmptyID       = NewValidationError("identifier must not be empty")
)

// KindForStatus maps an HTTP status code to the error kind used when the
// response body cannot refine the classification. The status always wins
// over an unparsable error payload.
func KindForStatus(status int) ErrorKind {
	switch {
	case status == constants.HTTPStatusNotFound:
		return ErrorKindNotFound
	case status == constants.HTTPStatusTooManyRequests:
		return ErrorKindThrottled
	case status >= constants.HTTPStatusInternalServerError:
		return ErrorKindServerFault
	default:
		return ErrorKindClientRequest
	}
}

// errorPayload matches the shapes the service uses for error bodies. Only
// one of the fields is populated per response.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// ParseAPIError builds an APIError from a non-success response. The message
// comes from the JSON error payload when one is present, otherwise from the
// raw body text.
func ParseAPIError(status int, body []byte, url string) *APIError {
	apiErr := &APIError{
		Kind:       KindForStatus(status),
		StatusCode: status,
		URL:        url,
		Body:       body,
	}

	var payload errorPayload

	err := json.Unmarshal(body, &payload)
	if err == nil {
		switch {
		case payload.Error != "":
			apiErr.Message = payload.Error
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Reason != "":
			apiErr.Message = payload.Reason
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}

	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}

	return apiErr
}

// hasKind reports whether err is an APIError of the given kind.
func hasKind(err error, kind ErrorKind) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}

	return false
}

// IsThrottled checks if the error is a throttle-budget exhaustion.
func IsThrottled(err error) bool {
	return hasKind(err, ErrorKindThrottled)
}

// IsConnectivity checks if the error is a network-level failure.
func IsConnectivity(err error) bool {
	return hasKind(err, ErrorKindConnectivity)
}

// IsServerFault checks if the error is a 5xx server failure.
func IsServerFault(err error) bool {
	return hasKind(err, ErrorKindServerFault)
}

// IsClientError checks if the error is a non-retryable 4xx failure,
// including not-found.
func IsClientError(err error) bool {
	return hasKind(err, ErrorKindClientRequest) || hasKind(err, ErrorKindNotFound)
}

// IsNotFound checks if the error is a 404 failure.
func IsNotFound(err error) bool {
	return hasKind(err, ErrorKindNotFound)
}

// IsResponseParse checks if the error is a malformed success payload.
func IsResponseParse(err error) bool {
	return hasKind(err, ErrorKindResponseParse)
}

// IsProxyError checks if the error is a proxy relay failure.
func IsProxyError(err error) bool {
	return hasKind(err, ErrorKindProxy)
}

// IsValidation checks if the error reports malformed input caught before any
// network call.
func IsValidation(err error) bool {
	validationErr := &ValidationError{}

	return errors.As(err, &validationErr)
}

// IsCacheMiss checks if the error reports a cache key that was absent or
// expired.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheKeyNotFound) || errors.Is(err, ErrCacheEntryExpired) ||
		errors.Is(err, ErrCacheDisabled) || errors.Is(err, ErrKeyNotFoundInAnyCache)
}

// IsRetryable reports whether the failure class is eligible for another
// attempt under some retry schedule.
func IsRetryable(err error) bool {
	return IsThrottled(err) || IsConnectivity(err) || IsServerFault(err) || IsProxyError(err)
}
