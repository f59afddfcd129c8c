package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected ErrorClass
	}{
		{"success 200", 200, ""},
		{"redirect 302", 302, ""},
		{"client error 400", 400, ErrorClassClient},
		{"client error 404", 404, ErrorClassClient},
		{"rate limit 429", 429, ErrorClassRateLimit},
		{"server error 500", 500, ErrorClassServer},
		{"server error 503", 503, ErrorClassServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyStatus(tt.status); got != tt.expected {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
			}
		})
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{501, false},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			if got := retryableStatus(tt.status); got != tt.expected {
				t.Errorf("retryableStatus(%d) = %v, want %v", tt.status, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				StatusCode: 500,
				Class:      ErrorClassNetwork,
				Method:     "GET",
				Endpoint:   "/v2.1/calls",
				Message:    "Request failed",
				Err:        errors.New("connection refused"),
			},
			expected: "justcall GET /v2.1/calls: API Error: Request failed (status 500, network): connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				Class:      ErrorClassClient,
				Method:     "GET",
				Endpoint:   "/v2.1/calls/{id}",
				Message:    "Call not found",
			},
			expected: "justcall GET /v2.1/calls/{id}: API Error: Call not found (status 404, client)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiErr := &APIError{StatusCode: 500, Class: ErrorClassNetwork, Err: wrappedErr}

	if apiErr.Unwrap() != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", apiErr.Unwrap(), wrappedErr)
	}
	if !errors.Is(apiErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	noWrap := &APIError{StatusCode: 404, Class: ErrorClassClient}
	if noWrap.Unwrap() != nil {
		t.Errorf("Unwrap() = %v, want nil", noWrap.Unwrap())
	}
}

func TestIsNotFoundAndRateLimited(t *testing.T) {
	notFound := fmt.Errorf("lookup: %w", &APIError{StatusCode: 404, Class: ErrorClassClient})
	limited := &APIError{StatusCode: 429, Class: ErrorClassRateLimit}

	if !IsNotFound(notFound) {
		t.Error("IsNotFound should see through wrapping")
	}
	if IsNotFound(limited) {
		t.Error("IsNotFound(429) = true")
	}
	if !IsRateLimited(limited) {
		t.Error("IsRateLimited(429) = false")
	}
	if IsRateLimited(errors.New("plain")) {
		t.Error("IsRateLimited(plain error) = true")
	}
}

func TestValidationErrors(t *testing.T) {
	err := missingField("phone")
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("%v does not wrap ErrMissingField", err)
	}
	if err.Error() != "required field missing: phone" {
		t.Errorf("Error() = %q", err.Error())
	}

	err = invalidParam("per_page must be between %d and %d", 1, 100)
	if !errors.Is(err, ErrInvalidParam) {
		t.Errorf("%v does not wrap ErrInvalidParam", err)
	}
}
