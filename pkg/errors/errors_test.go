package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusErr struct {
	status int
	msg    string
}

func (e *fakeStatusErr) Error() string   { return e.msg }
func (e *fakeStatusErr) HTTPStatus() int { return e.status }

// TestNewCLIError creates and validates a CLI error
func TestNewCLIError(t *testing.T) {
	cause := errors.New("underlying error")
	err := NewCLIError(ErrorTypeValidation, "Test error", cause)

	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeValidation, err.Type)
	assert.Equal(t, "Test error", err.Message)
	assert.Same(t, cause, err.Cause)
	assert.True(t, errors.Is(err, cause))
}

// TestWithSuggestion adds suggestion to error
func TestWithSuggestion(t *testing.T) {
	err := NewCLIError(ErrorTypeValidation, "Test", nil).WithSuggestion("Try something else")

	assert.True(t, err.HasSuggestion())
	assert.Equal(t, "Try something else", err.Suggestion)
}

func TestHTTPErrorTypes(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{400, ErrorTypeHTTP},
		{401, ErrorTypeUnauthorized},
		{403, ErrorTypeForbidden},
		{404, ErrorTypeNotFound},
		{409, ErrorTypeConflict},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServer},
		{503, ErrorTypeServer},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := HTTPError(tt.status, "server said no", nil)
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.status, err.StatusCode)
			assert.Equal(t, "server said no", err.Message)
		})
	}
}

func TestHTTPErrorDefaultMessage(t *testing.T) {
	assert.Equal(t, "Something went wrong", HTTPError(500, "", nil).Message)
}

func TestCategorizeError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, CategorizeError(nil))
	})

	t.Run("already categorized", func(t *testing.T) {
		orig := ValidationError("text", "empty")
		wrapped := fmt.Errorf("comment failed: %w", orig)
		assert.Same(t, orig, CategorizeError(wrapped))
	})

	t.Run("status aware error keeps server message", func(t *testing.T) {
		err := CategorizeError(&fakeStatusErr{status: 404, msg: "User not found"})
		assert.Equal(t, ErrorTypeNotFound, err.Type)
		assert.Equal(t, "User not found", err.Message)
	})

	t.Run("connection refused", func(t *testing.T) {
		err := CategorizeError(errors.New("dial tcp 127.0.0.1:5000: connect: connection refused"))
		assert.Equal(t, ErrorTypeNetwork, err.Type)
		assert.True(t, err.HasSuggestion())
	})

	t.Run("deadline", func(t *testing.T) {
		err := CategorizeError(errors.New("context deadline exceeded"))
		assert.Equal(t, ErrorTypeTimeout, err.Type)
	})

	t.Run("unknown keeps message", func(t *testing.T) {
		err := CategorizeError(errors.New("something odd"))
		assert.Equal(t, ErrorTypeUnknown, err.Type)
		assert.Equal(t, "something odd", err.Message)
	})
}

func TestFormatError(t *testing.T) {
	assert.Equal(t, "", FormatError(nil))

	out := FormatError(NetworkError("Could not connect"))
	assert.True(t, strings.HasPrefix(out, "❌ Error (network): Could not connect"))
	assert.Contains(t, out, "Suggestion:")

	out = FormatError(HTTPError(429, "slow down", nil))
	assert.Contains(t, out, "❌ Error (rate_limit): slow down")
	assert.Contains(t, out, "Wait a moment")

	out = FormatError(HTTPError(400, "Post must have text or image", nil))
	assert.Equal(t, "❌ Error (http): Post must have text or image\n", out)

	out = FormatError(errors.New("plain"))
	assert.Equal(t, "❌ Error: plain\n", out)
}
