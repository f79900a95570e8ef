package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/threadline/internal/testutil"
	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/client"
	clierrors "github.com/zfogg/threadline/pkg/errors"
)

func loggedIn(t *testing.T) (*testutil.Backend, *api.User) {
	t.Helper()
	backend := testutil.NewBackend(t)
	me := backend.AddUser("alice")
	client.InitWithBaseURL(backend.URL())
	client.SetSessionCookies([]*http.Cookie{backend.SessionCookieFor(me.ID)})
	return backend, me
}

func TestGetMe(t *testing.T) {
	t.Run("no session is not an error", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		client.InitWithBaseURL(backend.URL())

		me, err := api.GetMe(context.Background())
		require.NoError(t, err)
		assert.Nil(t, me)
	})

	t.Run("session resolves identity", func(t *testing.T) {
		_, alice := loggedIn(t)

		me, err := api.GetMe(context.Background())
		require.NoError(t, err)
		require.NotNil(t, me)
		assert.Equal(t, alice.ID, me.User.ID)
		assert.Equal(t, "alice", me.User.Username)
	})

	t.Run("unauthorized message with 200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
		}))
		defer srv.Close()
		client.InitWithBaseURL(srv.URL)

		me, err := api.GetMe(context.Background())
		require.NoError(t, err)
		assert.Nil(t, me)
	})

	t.Run("unauthorized status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized: No Token Provided"}`))
		}))
		defer srv.Close()
		client.InitWithBaseURL(srv.URL)

		me, err := api.GetMe(context.Background())
		require.NoError(t, err)
		assert.Nil(t, me)
	})

	t.Run("malformed body is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"user": [`))
		}))
		defer srv.Close()
		client.InitWithBaseURL(srv.URL)

		me, err := api.GetMe(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse session response")
		assert.Nil(t, me)
	})

	t.Run("server error surfaces", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.Fail(http.MethodGet, "/auth/me", http.StatusInternalServerError, "db down")
		client.InitWithBaseURL(backend.URL())

		_, err := api.GetMe(context.Background())
		require.Error(t, err)
		assert.True(t, api.IsServerError(err))
		assert.Equal(t, "db down", err.Error())
	})
}

func TestLoginStoresSessionCookie(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.AddUser("bob")
	client.InitWithBaseURL(backend.URL())

	user, err := api.Login(context.Background(), api.LoginRequest{Username: "bob", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)

	me, err := api.GetMe(context.Background())
	require.NoError(t, err)
	require.NotNil(t, me)
	assert.Equal(t, user.ID, me.User.ID)

	require.NoError(t, api.Logout(context.Background()))
	me, err = api.GetMe(context.Background())
	require.NoError(t, err)
	assert.Nil(t, me)
}

func TestLoginFailureMessage(t *testing.T) {
	backend := testutil.NewBackend(t)
	client.InitWithBaseURL(backend.URL())

	_, err := api.Login(context.Background(), api.LoginRequest{Username: "ghost", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Invalid username or password", err.Error())
}

func TestSignup(t *testing.T) {
	backend := testutil.NewBackend(t)
	client.InitWithBaseURL(backend.URL())

	user, err := api.Signup(context.Background(), api.SignupRequest{
		Email: "carol@example.com", Username: "carol", Fullname: "Carol C", Password: "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "Carol C", user.Fullname)
	assert.Equal(t, 1, backend.Count(http.MethodPost, "/auth/signup"))
}

func TestGetPosts(t *testing.T) {
	backend, alice := loggedIn(t)
	bob := backend.AddUser("bob")
	backend.AddPost(alice.ID, "first")
	backend.AddPost(bob.ID, "second")

	posts, err := api.GetPosts(context.Background(), "/posts/all")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].Text)
	assert.Equal(t, "bob", posts[0].User.Username)

	mine, err := api.GetUserPosts(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "first", mine[0].Text)

	following, err := api.GetPosts(context.Background(), "/posts/flowing")
	require.NoError(t, err)
	assert.NotNil(t, following)
	assert.Empty(t, following)
}

func TestGetPostsNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	}))
	defer srv.Close()
	client.InitWithBaseURL(srv.URL)

	posts, err := api.GetPosts(context.Background(), "/posts/all")
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestLikePostReturnsLikers(t *testing.T) {
	backend, alice := loggedIn(t)
	post := backend.AddPost(alice.ID, "")

	liked, err := api.LikePost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, liked)

	liked, err = api.LikePost(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestCommentAndDelete(t *testing.T) {
	backend, alice := loggedIn(t)
	post := backend.AddPost(alice.ID, "")

	require.NoError(t, api.CommentOnPost(context.Background(), post.ID, "nice"))
	stored, ok := backend.Post(post.ID)
	require.True(t, ok)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, "nice", stored.Comments[0].Text)

	err := api.CommentOnPost(context.Background(), post.ID, "")
	require.Error(t, err)
	assert.Equal(t, "Text field is required", err.Error())

	require.NoError(t, api.DeletePost(context.Background(), post.ID))
	_, ok = backend.Post(post.ID)
	assert.False(t, ok)

	err = api.DeletePost(context.Background(), post.ID)
	assert.True(t, api.IsNotFound(err))
}

func TestCreatePost(t *testing.T) {
	_, _ = loggedIn(t)

	post, err := api.CreatePost(context.Background(), api.CreatePostRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", post.Text)
	assert.Equal(t, "alice", post.User.Username)
}

func TestProfileFollowAndUpdate(t *testing.T) {
	backend, alice := loggedIn(t)
	bob := backend.AddUser("bob")

	profile, err := api.GetUserProfile(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, profile.ID)

	suggested, err := api.GetSuggestedUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, suggested, 1)

	msg, err := api.FollowUser(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "User followed successfully", msg)

	stored, _ := backend.User(alice.ID)
	assert.True(t, stored.IsFollowing(bob.ID))

	updated, err := api.UpdateProfile(context.Background(), alice.ID, api.UpdateProfileRequest{Bio: "gopher"})
	require.NoError(t, err)
	assert.Equal(t, "gopher", updated.Bio)
	assert.Equal(t, alice.Fullname, updated.Fullname)

	_, err = api.UpdateProfile(context.Background(), alice.ID, api.UpdateProfileRequest{NewPassword: "abc"})
	require.Error(t, err)
	assert.Equal(t, "Please provide both current password and new password", err.Error())

	_, err = api.GetUserProfile(context.Background(), "nobody")
	assert.True(t, api.IsNotFound(err))
}

func TestNotifications(t *testing.T) {
	backend, alice := loggedIn(t)
	bob := backend.AddUser("bob")
	backend.Follow(bob.ID, alice.ID)

	notes, err := api.GetNotifications(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "follow", notes[0].Type)
	assert.Equal(t, "bob", notes[0].From.Username)

	require.NoError(t, api.DeleteNotifications(context.Background()))
	notes, err = api.GetNotifications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestParseErrorFallbacks(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"message":"bad input"}`, "bad input"},
		{"error field", http.StatusBadRequest, `{"error":"Internal Server Error"}`, "Internal Server Error"},
		{"plain text", http.StatusBadGateway, "upstream gone", "upstream gone"},
		{"html page", http.StatusServiceUnavailable, "<html>down</html>", "Service Unavailable"},
		{"empty body", http.StatusNotFound, "", "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			client.InitWithBaseURL(srv.URL)

			resp, err := client.GetClient().R().Get("/x")
			require.NoError(t, err)

			apiErr := api.CheckResponse(resp, nil)
			require.Error(t, apiErr)
			assert.Equal(t, tt.message, apiErr.Error())

			cliErr := clierrors.CategorizeError(apiErr)
			assert.Equal(t, tt.message, cliErr.Message)
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	forbidden := &api.APIError{StatusCode: http.StatusForbidden, Message: "You can only delete your own posts"}
	assert.True(t, api.IsForbidden(forbidden))
	assert.False(t, api.IsUnauthorized(forbidden))
	assert.False(t, api.IsForbidden(errors.New("forbidden")))
	assert.Equal(t, clierrors.ErrorTypeForbidden, clierrors.CategorizeError(forbidden).Type)
}

func TestCheckResponseTransportError(t *testing.T) {
	client.InitWithBaseURL("http://127.0.0.1:1")

	_, err := api.GetPosts(context.Background(), "/posts/all")
	require.Error(t, err)

	var cliErr *clierrors.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, clierrors.ErrorTypeNetwork, cliErr.Type)
}
