package view_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/query"
	"github.com/zfogg/threadline/pkg/view"
)

func TestNotifications(t *testing.T) {
	color.NoColor = true
	h := newHarness(t)
	bob := h.backend.AddUser("bob")
	h.backend.Follow(bob.ID, h.me.ID)

	list, err := h.app.Notifications(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "follow", list[0].Type)
	assert.Equal(t, "bob", list[0].From.Username)

	var sb strings.Builder
	view.RenderNotifications(&sb, list)
	assert.Equal(t, "@bob followed you\n", sb.String())

	require.NoError(t, h.app.ClearNotifications(context.Background()))
	cached, ok := query.GetData[[]api.Notification](h.store, view.NotificationsKey)
	require.True(t, ok)
	assert.Empty(t, cached)
	assert.Equal(t, 1, h.backend.Count(http.MethodDelete, "/notifications"))

	last, _ := h.toasts.Last()
	assert.Equal(t, output.Notification{Level: "success", Message: "Notifications deleted successfully"}, last)

	sb.Reset()
	view.RenderNotifications(&sb, cached)
	assert.Equal(t, "No notifications 🤔\n", sb.String())
}

func TestSuggestedUsers(t *testing.T) {
	h := newHarness(t)
	h.backend.AddUser("bob")
	h.backend.AddUser("carol")

	users, err := h.app.SuggestedUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = h.app.SuggestedUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.Count(http.MethodGet, "/users/suggested"))
}

func TestCreatePost(t *testing.T) {
	h := newHarness(t)
	feed := h.loadedFeed(t, view.FeedForYou)
	require.Equal(t, view.FeedEmpty, feed.State())

	post, err := h.app.CreatePost(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Text)

	require.Len(t, feed.Posts(), 1)
	assert.Equal(t, post.ID, feed.Posts()[0].ID)
	assert.Equal(t, 2, h.fetchCount(view.PostsKey))

	t.Run("with image", func(t *testing.T) {
		post, err := h.app.CreatePost(context.Background(), "", writeFile(t, "pic.png", pngBytes))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(post.Img, "data:image/png;base64,"))
	})

	t.Run("rejected by the backend", func(t *testing.T) {
		_, err := h.app.CreatePost(context.Background(), "", "")
		require.Error(t, err)
		last, _ := h.toasts.Last()
		assert.Equal(t, "Post must have text or image", last.Message)
	})
}
