package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of an error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
	ErrorTypeCircuitOpen
)

// LLMError represents a failed backend call.
type LLMError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.TypeString(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.TypeString(), e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

func (e *LLMError) TypeString() string {
	switch e.Type {
	case ErrorTypeProvider:
		return "ProviderError"
	case ErrorTypeRequest:
		return "RequestError"
	case ErrorTypeResponse:
		return "ResponseError"
	case ErrorTypeAPI:
		return "APIError"
	case ErrorTypeRateLimit:
		return "RateLimitError"
	case ErrorTypeAuthentication:
		return "AuthenticationError"
	case ErrorTypeInvalidInput:
		return "InvalidInputError"
	case ErrorTypeCircuitOpen:
		return "CircuitOpenError"
	default:
		return "UnknownError"
	}
}

// LoggableFields returns key/value pairs for structured logging.
func (e *LLMError) LoggableFields() []any {
	return []any{
		"error_type", e.TypeString(),
		"message", e.Message,
		"error", e.Err,
	}
}

// Retryable reports whether repeating the same call might succeed.
func (e *LLMError) Retryable() bool {
	switch e.Type {
	case ErrorTypeRequest, ErrorTypeRateLimit:
		return true
	case ErrorTypeAPI:
		return e.StatusCode >= http.StatusInternalServerError
	default:
		return false
	}
}

// NewLLMError creates a new LLMError
func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// newStatusError classifies a non-200 HTTP reply.
func newStatusError(status int, body []byte) *LLMError {
	errType := ErrorTypeAPI
	switch status {
	case http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrorTypeAuthentication
	}
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &LLMError{
		Type:       errType,
		Message:    fmt.Sprintf("status code %d: %s", status, string(body)),
		StatusCode: status,
	}
}

// IsRetryable reports whether err is an LLMError worth retrying.
func IsRetryable(err error) bool {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Retryable()
	}
	return false
}
