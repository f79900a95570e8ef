package view

import (
	"context"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/query"
)

// Notifications loads the session user's notifications
func (a *App) Notifications(ctx context.Context) ([]api.Notification, error) {
	return query.Fetch(ctx, a.Store, NotificationsKey, api.GetNotifications, a.queryOptions())
}

// ClearNotifications deletes every notification and empties the cached list
func (a *App) ClearNotifications(ctx context.Context) error {
	if err := api.DeleteNotifications(ctx); err != nil {
		a.notifyError(err)
		return err
	}
	query.SetData(a.Store, NotificationsKey, []api.Notification{})
	a.notifySuccess("Notifications deleted successfully")
	return nil
}

// SuggestedUsers loads the users suggested to follow
func (a *App) SuggestedUsers(ctx context.Context) ([]api.User, error) {
	return query.Fetch(ctx, a.Store, SuggestedUsersKey, api.GetSuggestedUsers, a.queryOptions())
}

// CreatePost publishes a post. imgPath, when set, is attached as a data URI.
// Every feed is invalidated afterwards.
func (a *App) CreatePost(ctx context.Context, text, imgPath string) (*api.Post, error) {
	req := api.CreatePostRequest{Text: text}
	if imgPath != "" {
		uri, err := ReadDataURI(imgPath)
		if err != nil {
			a.notifyError(err)
			return nil, err
		}
		req.Img = uri
	}

	post, err := api.CreatePost(ctx, req)
	if err != nil {
		a.notifyError(err)
		return nil, err
	}

	a.notifySuccess("Post created successfully")
	return post, a.invalidate(ctx, PostsKey, UserPostsRoot)
}
