package api

import (
	"context"

	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/logger"
)

// GetNotifications lists notifications for the session user
func GetNotifications(ctx context.Context) ([]Notification, error) {
	logger.Debug("Fetching notifications")

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Get("/notifications")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var notifications []Notification
	if err := decode(resp, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// DeleteNotifications clears all notifications of the session user
func DeleteNotifications(ctx context.Context) error {
	logger.Debug("Clearing notifications")

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Delete("/notifications")

	return CheckResponse(resp, err)
}
