package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType categorizes different error types
type ErrorType string

const (
	ErrorTypeNetwork ErrorType = "network"
	ErrorTypeTimeout ErrorType = "timeout"
	ErrorTypeHTTP    ErrorType = "http"

	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"

	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeFileNotFound  ErrorType = "file_not_found"
	ErrorTypeInvalidFormat ErrorType = "invalid_format"

	ErrorTypeServer    ErrorType = "server"
	ErrorTypeNotFound  ErrorType = "not_found"
	ErrorTypeConflict  ErrorType = "conflict"
	ErrorTypeRateLimit ErrorType = "rate_limit"

	ErrorTypeUnknown ErrorType = "unknown"
)

// CLIError is an error shown to the user, with an optional hint
type CLIError struct {
	Type       ErrorType
	Message    string
	Cause      error
	Suggestion string
	StatusCode int
}

func (e *CLIError) Error() string {
	return e.Message
}

// WithSuggestion sets the hint printed under the error
func (e *CLIError) WithSuggestion(suggestion string) *CLIError {
	e.Suggestion = suggestion
	return e
}

// HasSuggestion returns true if the error has a suggestion
func (e *CLIError) HasSuggestion() bool {
	return e.Suggestion != ""
}

func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewCLIError creates a new CLI error
func NewCLIError(errorType ErrorType, message string, cause error) *CLIError {
	return &CLIError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NetworkError is returned when the backend cannot be reached
func NetworkError(message string) *CLIError {
	return NewCLIError(ErrorTypeNetwork, message, nil).
		WithSuggestion("Check your internet connection and the api.base_url setting, then try again.")
}

// UnauthorizedError is returned by commands that need a session
func UnauthorizedError() *CLIError {
	return NewCLIError(ErrorTypeUnauthorized, "You need to be logged in to do that", nil).
		WithSuggestion("Run 'threadline auth login' first.")
}

// ForbiddenError is returned when acting on another user's post or profile
func ForbiddenError() *CLIError {
	return NewCLIError(ErrorTypeForbidden, "Access denied", nil).
		WithSuggestion("You can only change your own posts and profile.")
}

// ValidationError reports bad input before anything is sent
func ValidationError(field, reason string) *CLIError {
	return NewCLIError(ErrorTypeValidation, fmt.Sprintf("Validation error: %s - %s", field, reason), nil)
}

// FileNotFoundError reports a missing image file
func FileNotFoundError(path string) *CLIError {
	return NewCLIError(ErrorTypeFileNotFound, fmt.Sprintf("File not found: %s", path), nil).
		WithSuggestion("Check the file path and try again.")
}

// InvalidFormatError reports a file of the wrong kind
func InvalidFormatError(what, got string) *CLIError {
	return NewCLIError(ErrorTypeInvalidFormat, fmt.Sprintf("Invalid %s: %s", what, got), nil)
}

// NotFoundError reports a resource missing from the cached lists and the backend
func NotFoundError(resourceType, identifier string) *CLIError {
	return NewCLIError(ErrorTypeNotFound, fmt.Sprintf("%s not found: %s", resourceType, identifier), nil)
}

var statusHints = map[ErrorType]string{
	ErrorTypeUnauthorized: "Run 'threadline auth login' to start a new session.",
	ErrorTypeConflict:     "That username or email is already taken.",
	ErrorTypeRateLimit:    "Too many requests. Wait a moment and try again.",
	ErrorTypeServer:       "The server encountered an error. Try again in a few moments.",
}

// HTTPError wraps a non-2xx backend response, keeping the server-supplied message
func HTTPError(statusCode int, message string, cause error) *CLIError {
	errorType := ErrorTypeHTTP
	switch {
	case statusCode == http.StatusUnauthorized:
		errorType = ErrorTypeUnauthorized
	case statusCode == http.StatusForbidden:
		errorType = ErrorTypeForbidden
	case statusCode == http.StatusNotFound:
		errorType = ErrorTypeNotFound
	case statusCode == http.StatusConflict:
		errorType = ErrorTypeConflict
	case statusCode == http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
	case statusCode >= 500:
		errorType = ErrorTypeServer
	}
	if message == "" {
		message = "Something went wrong"
	}

	err := NewCLIError(errorType, message, cause)
	err.StatusCode = statusCode
	err.Suggestion = statusHints[errorType]
	return err
}

// statusCoder is implemented by API errors that know their HTTP status
type statusCoder interface {
	HTTPStatus() int
}

// CategorizeError converts a standard error into a CLIError
func CategorizeError(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return HTTPError(sc.HTTPStatus(), err.Error(), err)
	}

	errMsg := err.Error()
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "network is unreachable"):
		e := NetworkError("Could not connect to server. Make sure it's running.")
		e.Cause = err
		return e
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "context deadline exceeded"):
		return NewCLIError(ErrorTypeTimeout, "Request timed out", err).
			WithSuggestion("The server took too long to respond. Try again, or raise api.timeout.")
	default:
		return NewCLIError(ErrorTypeUnknown, errMsg, err)
	}
}

// FormatError returns a user-friendly error message
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	cliErr := CategorizeError(err)
	var sb strings.Builder

	sb.WriteString("❌ Error")
	if cliErr.Type != ErrorTypeUnknown {
		sb.WriteString(" (")
		sb.WriteString(string(cliErr.Type))
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(cliErr.Message)
	sb.WriteString("\n")

	if cliErr.HasSuggestion() {
		sb.WriteString("\n💡 Suggestion: ")
		sb.WriteString(cliErr.Suggestion)
		sb.WriteString("\n")
	}

	return sb.String()
}
