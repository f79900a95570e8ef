package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/logger"
)

// GetPosts fetches a post list from one of the feed endpoints
// (/posts/all, /posts/flowing, /posts/user/:username, /posts/likePost/:userId)
func GetPosts(ctx context.Context, endpoint string) ([]*Post, error) {
	logger.Debug("Fetching posts", "endpoint", endpoint)

	var posts []*Post

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Get(endpoint)

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	if err := decode(resp, &posts); err != nil {
		return nil, err
	}

	if posts == nil {
		posts = []*Post{}
	}
	return posts, nil
}

// GetUserPosts fetches the posts authored by username
func GetUserPosts(ctx context.Context, username string) ([]*Post, error) {
	return GetPosts(ctx, "/posts/user/"+url.PathEscape(username))
}

// CreatePost publishes a new post
func CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	logger.Debug("Creating post", "has_image", req.Img != "")

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/posts/create")

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var post Post
	if err := decode(resp, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// LikePost toggles the session user's like and returns the authoritative liker list
func LikePost(ctx context.Context, postID string) ([]string, error) {
	logger.Debug("Toggling like", "post_id", postID)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Post(fmt.Sprintf("/posts/like/%s", url.PathEscape(postID)))

	if err := CheckResponse(resp, err); err != nil {
		return nil, err
	}

	var liked []string
	if err := decode(resp, &liked); err != nil {
		return nil, err
	}
	if liked == nil {
		liked = []string{}
	}
	return liked, nil
}

// CommentOnPost appends a comment to a post. The backend's echo is not used by
// callers; they append their own locally built comment.
func CommentOnPost(ctx context.Context, postID, text string) error {
	logger.Debug("Commenting on post", "post_id", postID)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(CommentRequest{Text: text}).
		Post(fmt.Sprintf("/posts/comment/%s", url.PathEscape(postID)))

	return CheckResponse(resp, err)
}

// DeletePost deletes a post owned by the session user
func DeletePost(ctx context.Context, postID string) error {
	logger.Debug("Deleting post", "post_id", postID)

	resp, err := client.GetClient().
		R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/posts/%s", url.PathEscape(postID)))

	return CheckResponse(resp, err)
}
