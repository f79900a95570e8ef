package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/logger"
)

// GetUserProfile gets a user's public profile
func GetUserProfile(ctx context.Context, username string) (*User, error) {
	logger.Debug("Fetching user profile", "username", username)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Get("/users/profile/" + url.PathEscape(username))

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetSuggestedUsers returns accounts the session user may want to follow
func GetSuggestedUsers(ctx context.Context) ([]User, error) {
	logger.Debug("Fetching suggested users")

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Get("/users/suggested")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var users []User
	if err := decode(resp, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FollowUser toggles following the user with the given id
func FollowUser(ctx context.Context, userID string) (string, error) {
	logger.Debug("Toggling follow", "user_id", userID)

	var msg MessageResponse

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Post(fmt.Sprintf("/users/follow/%s", url.PathEscape(userID)))

	if err := CheckResponse(resp, err); err != nil {
		return "", err
	}

	// The acknowledgement text is informational only
	_ = decode(resp, &msg)
	return msg.Message, nil
}

// UpdateProfile updates profile fields, password and/or images of userID
func UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*User, error) {
	logger.Debug("Updating profile",
		"user_id", userID,
		"profile_img", req.ProfileImg != "",
		"cover_img", req.CoverImg != "",
		"password", req.NewPassword != "",
	)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(fmt.Sprintf("/users/update/%s", url.PathEscape(userID)))

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var user User
	if err := decode(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
