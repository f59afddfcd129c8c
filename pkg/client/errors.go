package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrInvalidConfig is returned by New for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrMissingSearchParam is returned when a contact query has no search field set.
	ErrMissingSearchParam = errors.New("at least one search parameter is required")

	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidParam is returned when a request parameter is outside its allowed range.
	ErrInvalidParam = errors.New("invalid parameter")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 2xx response whose body could not be decoded.
	ErrorClassDecode ErrorClass = "decode"
)

// APIError is returned for every failed request: non-2xx responses, transport
// failures and undecodable bodies. Transport failures carry status 500.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Method     string
	Endpoint   string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("justcall %s %s: API Error: %s (status %d, %s): %v",
			e.Method, e.Endpoint, e.Message, e.StatusCode, e.Class, e.Err)
	}
	return fmt.Sprintf("justcall %s %s: API Error: %s (status %d, %s)",
		e.Method, e.Endpoint, e.Message, e.StatusCode, e.Class)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimited reports whether err is an APIError with status 429.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ErrorClassRateLimit
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// retryableStatus reports whether a response with status should be retried.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

func invalidParam(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParam, fmt.Sprintf(format, args...))
}
