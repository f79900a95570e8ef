package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
	clierrors "github.com/zfogg/threadline/pkg/errors"
)

// UnauthorizedMessage is the message the backend sends when no session cookie is valid
const UnauthorizedMessage = "Unauthorized"

// APIError represents a non-2xx response from the backend
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return e.Message
}

// HTTPStatus lets pkg/errors categorize the failure by status code
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ParseError parses an error response from the API, preferring its "message" field
func ParseError(resp *resty.Response) error {
	statusCode := resp.StatusCode()

	var errResp ErrorResponse
	if err := json.Unmarshal(resp.Body(), &errResp); err == nil {
		if errResp.Message != "" {
			return &APIError{Message: errResp.Message, StatusCode: statusCode}
		}
		if errResp.Error != "" {
			return &APIError{Message: errResp.Error, StatusCode: statusCode}
		}
	}

	message := strings.TrimSpace(string(resp.Body()))
	if message == "" || strings.HasPrefix(message, "<") {
		message = http.StatusText(statusCode)
	}
	if message == "" {
		message = "Something went wrong"
	}
	return &APIError{Message: message, StatusCode: statusCode}
}

// IsUnauthorized checks if error is due to missing/invalid authentication
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.Message == UnauthorizedMessage
	}
	return false
}

// IsForbidden checks if error is due to insufficient permissions
func IsForbidden(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsNotFound checks if error is due to resource not found
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsServerError checks if error is due to server error (5xx)
func IsServerError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// CheckResponse checks if response is successful and returns a normalized error if not.
// Transport failures come back as categorized CLI errors carrying the best available message.
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return clierrors.CategorizeError(err)
	}

	if !resp.IsSuccess() {
		return ParseError(resp)
	}

	return nil
}

// decode parses a successful response body into target
func decode(resp *resty.Response, target interface{}) error {
	if err := json.Unmarshal(resp.Body(), target); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", resp.Request.URL, err)
	}
	return nil
}
