package api

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/logger"
)

// meResponse covers both the session payload and the backend's unauthorized body
type meResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user,omitempty"`
}

// GetMe resolves the session identity. A missing or rejected session is not an
// error: it returns (nil, nil) so callers can treat it as "logged out".
func GetMe(ctx context.Context) (*AuthUser, error) {
	logger.Debug("Fetching session identity")

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Get("/auth/me")

	if err != nil {
		return nil, CheckResponse(resp, err)
	}

	if err := CheckResponse(resp, nil); err != nil {
		if IsUnauthorized(err) {
			logger.Debug("No active session")
			return nil, nil
		}
		return nil, err
	}

	var me meResponse
	if err := json.Unmarshal(resp.Body(), &me); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	if me.Message == UnauthorizedMessage {
		logger.Debug("No active session")
		return nil, nil
	}

	if me.User == nil {
		return nil, nil
	}

	logger.Debug("Session identity resolved", "username", me.User.Username)
	return &AuthUser{User: *me.User}, nil
}

// Login starts a session; the backend sets the session cookie on the shared client
func Login(ctx context.Context, req LoginRequest) (*User, error) {
	logger.Debug("Attempting login", "username", req.Username)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/auth/login")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}

	logger.Debug("Login successful", "username", user.Username)
	return &user, nil
}

// Signup creates an account and starts a session
func Signup(ctx context.Context, req SignupRequest) (*User, error) {
	logger.Debug("Creating account", "username", req.Username)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/auth/signup")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// Logout ends the backend session
func Logout(ctx context.Context) error {
	logger.Debug("Logging out")

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Post("/auth/logout")

	return CheckResponse(resp, err)
}
