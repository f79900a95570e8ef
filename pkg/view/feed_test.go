package view_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/threadline/pkg/query"
	"github.com/zfogg/threadline/pkg/query/persist"
	"github.com/zfogg/threadline/pkg/view"
)

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		feedType view.FeedType
		want     string
	}{
		{"for you", view.FeedForYou, "/posts/all"},
		{"following", view.FeedFollowing, "/posts/flowing"},
		{"user posts", view.FeedPosts, "/posts/user/bob"},
		{"user likes", view.FeedLikes, "/posts/likePost/u-42"},
		{"unknown tag", view.FeedType("trending"), "/posts/all"},
		{"empty tag", view.FeedType(""), "/posts/all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, view.Endpoint(tt.feedType, "bob", "u-42"))
		})
	}

	assert.Equal(t, "/posts/user/a%20b", view.Endpoint(view.FeedPosts, "a b", ""))
}

func TestParseFeedType(t *testing.T) {
	assert.Equal(t, view.FeedForYou, view.ParseFeedType("forYou"))
	assert.Equal(t, view.FeedForYou, view.ParseFeedType(" for-you "))
	assert.Equal(t, view.FeedLikes, view.ParseFeedType("LIKES"))
	assert.Equal(t, view.FeedType("weird"), view.ParseFeedType("weird"))
}

func TestFeedKey(t *testing.T) {
	shared := view.NewApp(query.NewStore(), nil)
	assert.Equal(t, view.PostsKey, shared.FeedKey(view.FeedLikes, "u1"))
	assert.Equal(t, view.PostsKey, shared.FeedKey(view.FeedForYou, ""))

	scoped := view.NewApp(query.NewStore(), nil, view.WithScopedFeedKeys(true))
	assert.Equal(t, query.Key{"posts", "likes", "u1"}, scoped.FeedKey(view.FeedLikes, "u1"))
	assert.Equal(t, query.Key{"posts", "for-you"}, scoped.FeedKey(view.FeedForYou, ""))
	assert.True(t, scoped.FeedKey(view.FeedPosts, "bob").HasPrefix(view.PostsKey))
}

func TestFeedStates(t *testing.T) {
	t.Run("loading before the first load", func(t *testing.T) {
		h := newHarness(t)
		feed := h.app.NewFeed(view.FeedForYou, "", "")
		assert.Equal(t, view.FeedLoading, feed.State())
	})

	t.Run("empty", func(t *testing.T) {
		h := newHarness(t)
		feed := h.loadedFeed(t, view.FeedForYou)
		assert.Equal(t, view.FeedEmpty, feed.State())
		assert.Empty(t, feed.Items())
	})

	t.Run("populated", func(t *testing.T) {
		h := newHarness(t)
		h.backend.AddPost(h.me.ID, "first")
		h.backend.AddPost(h.me.ID, "second")

		feed := h.loadedFeed(t, view.FeedForYou)
		assert.Equal(t, view.FeedPopulated, feed.State())
		require.Len(t, feed.Items(), 2)
		assert.Equal(t, "second", feed.Items()[0].Post().Text)
	})

	t.Run("error does not panic", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Fail(http.MethodGet, "/posts/all", http.StatusInternalServerError, "db down")

		feed := h.app.NewFeed(view.FeedForYou, "", "")
		t.Cleanup(feed.Close)
		err := feed.Load(context.Background())
		require.Error(t, err)
		assert.Equal(t, view.FeedError, feed.State())
		assert.EqualError(t, feed.Err(), "db down")
	})
}

func TestFeedUsesCacheWithinStaleTime(t *testing.T) {
	h := newHarness(t)
	h.backend.AddPost(h.me.ID, "")

	feed := h.loadedFeed(t, view.FeedForYou)
	require.NoError(t, feed.Load(context.Background()))
	assert.Equal(t, 1, h.backend.Count(http.MethodGet, "/posts/all"))

	require.NoError(t, feed.Refresh(context.Background()))
	assert.Equal(t, 2, h.backend.Count(http.MethodGet, "/posts/all"))
}

func TestSwitchPostsToLikesFetchesOnce(t *testing.T) {
	h := newHarness(t)
	bob := h.backend.AddUser("bob")
	h.backend.AddPost(bob.ID, "bob's post")
	likesPath := "/posts/likePost/" + bob.ID

	page := h.app.NewProfilePage("bob")
	t.Cleanup(page.Close)
	require.NoError(t, page.Load(context.Background()))

	entry, ok := h.store.Get(view.PostsKey)
	require.True(t, ok)
	require.True(t, entry.HasData)
	assert.Equal(t, 0, h.backend.Count(http.MethodGet, likesPath))

	require.NoError(t, page.SetTab(context.Background(), view.FeedLikes))

	assert.Equal(t, 1, h.backend.Count(http.MethodGet, likesPath))
	assert.Equal(t, view.FeedLikes, page.Feed().Type())
	assert.Equal(t, likesPath, page.Feed().Endpoint())
	assert.Equal(t, view.FeedEmpty, page.Feed().State())
}

func TestPersistedFeedOfAnotherTypeIsRefetched(t *testing.T) {
	h := newHarness(t)
	bob := h.backend.AddUser("bob")
	h.backend.AddPost(bob.ID, "bob writes")
	dir := t.TempDir()

	// each app stands for one CLI invocation sharing the snapshot directory
	invocation := func() *view.App {
		p, err := persist.NewFile(dir, 0)
		require.NoError(t, err)
		store := query.NewStore(query.WithPersister(p))
		t.Cleanup(func() { _ = store.Close() })
		return view.NewApp(store, h.toasts)
	}

	forYou := invocation().NewFeed(view.FeedForYou, "", "")
	t.Cleanup(forYou.Close)
	require.NoError(t, forYou.Load(context.Background()))
	require.Len(t, forYou.Posts(), 1)

	following := invocation().NewFeed(view.FeedFollowing, "", "")
	t.Cleanup(following.Close)
	require.NoError(t, following.Load(context.Background()))
	assert.Equal(t, 1, h.backend.Count(http.MethodGet, "/posts/flowing"))
	assert.Empty(t, following.Posts())
	assert.Equal(t, view.FeedEmpty, following.State())

	again := invocation().NewFeed(view.FeedFollowing, "", "")
	t.Cleanup(again.Close)
	require.NoError(t, again.Load(context.Background()))
	assert.Equal(t, 1, h.backend.Count(http.MethodGet, "/posts/flowing"), "same type hydrates")
}

func TestFeedRecoversWhenReloadedElsewhere(t *testing.T) {
	h := newHarness(t)
	h.backend.AddPost(h.me.ID, "back again")
	h.backend.Fail(http.MethodGet, "/posts/all", http.StatusInternalServerError, "db down")

	feed := h.app.NewFeed(view.FeedForYou, "", "")
	t.Cleanup(feed.Close)
	require.Error(t, feed.Load(context.Background()))
	require.Equal(t, view.FeedError, feed.State())

	h.backend.Recover(http.MethodGet, "/posts/all")
	require.NoError(t, h.store.Invalidate(context.Background(), view.PostsKey))

	assert.NoError(t, feed.Err())
	assert.Equal(t, view.FeedPopulated, feed.State())
}

func TestScopedFeedKeysKeepFeedsApart(t *testing.T) {
	h := newHarness(t, view.WithScopedFeedKeys(true))
	h.backend.AddPost(h.me.ID, "mine")

	forYou := h.loadedFeed(t, view.FeedForYou)
	likes := h.loadedFeed(t, view.FeedLikes)

	assert.Len(t, forYou.Posts(), 1)
	assert.Empty(t, likes.Posts())
	assert.NotEqual(t, forYou.Key(), likes.Key())
}

func TestFeedOnChange(t *testing.T) {
	h := newHarness(t)
	h.backend.AddPost(h.me.ID, "")

	feed := h.app.NewFeed(view.FeedForYou, "", "")
	t.Cleanup(feed.Close)
	changes := 0
	feed.OnChange(func() { changes++ })

	require.NoError(t, feed.Load(context.Background()))
	// load start and load end
	assert.Equal(t, 2, changes)

	feed.Close()
	require.NoError(t, feed.Refresh(context.Background()))
	assert.Equal(t, 4, changes, "a fetch resubscribes")
}

func TestFeedRender(t *testing.T) {
	color.NoColor = true

	t.Run("loading shows skeletons", func(t *testing.T) {
		h := newHarness(t)
		feed := h.app.NewFeed(view.FeedForYou, "", "")

		var sb strings.Builder
		feed.Render(&sb)
		assert.Equal(t, 3, strings.Count(sb.String(), "░░░░  ░░░░░░░░░░░░"))
	})

	t.Run("empty", func(t *testing.T) {
		h := newHarness(t)
		feed := h.loadedFeed(t, view.FeedFollowing)

		var sb strings.Builder
		feed.Render(&sb)
		assert.Equal(t, "No posts in this tab. Switch 👻\n", sb.String())
	})

	t.Run("populated", func(t *testing.T) {
		h := newHarness(t)
		post := h.backend.AddPost(h.me.ID, "hello world")
		feed := h.loadedFeed(t, view.FeedForYou)

		var sb strings.Builder
		feed.Render(&sb)
		out := sb.String()
		assert.Contains(t, out, "hello world")
		assert.Contains(t, out, "@alice")
		assert.Contains(t, out, "(you)")
		assert.Contains(t, out, "id:"+post.ID)
		assert.Contains(t, out, "a few seconds ago")
	})

	t.Run("error", func(t *testing.T) {
		h := newHarness(t)
		h.backend.Fail(http.MethodGet, "/posts/all", http.StatusInternalServerError, "db down")
		feed := h.app.NewFeed(view.FeedForYou, "", "")
		t.Cleanup(feed.Close)
		_ = feed.Load(context.Background())

		var sb strings.Builder
		feed.Render(&sb)
		assert.Contains(t, sb.String(), "db down")
	})
}
