// Package view holds the view models of the client: session shell, feeds,
// post items and the profile page with its editor. Views read server state
// through a shared query.Store and report mutation outcomes to a Notifier.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zfogg/threadline/pkg/api"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/query"
)

// Well-known cache keys
var (
	AuthUserKey       = query.Key{"authUser"}
	PostsKey          = query.Key{"posts"}
	SuggestedUsersKey = query.Key{"suggestedUsers"}
	NotificationsKey  = query.Key{"notifications"}
	UserProfileRoot   = query.Key{"userProfile"}
	UserPostsRoot     = query.Key{"userPosts"}
)

// ProfileKey is the cache key of one user's profile
func ProfileKey(username string) query.Key {
	return query.Key{"userProfile", username}
}

// UserPostsKey is the cache key of the post list counted on a profile
func UserPostsKey(username string) query.Key {
	return query.Key{"userPosts", username}
}

var (
	// ErrNoSession is returned by actions that need a logged-in user
	ErrNoSession = errors.New("not logged in")
	// ErrPending is returned when the same action is already in flight
	ErrPending = errors.New("action already in progress")
	// ErrNotLoaded is returned by actions on a profile that was never loaded
	ErrNotLoaded = errors.New("profile is not loaded")
	// ErrFollowSelf is returned when following your own profile
	ErrFollowSelf = errors.New("you can't follow yourself")
)

// SessionSaver persists the backend session between processes
type SessionSaver interface {
	SaveSession(user *api.User) error
	ClearSession() error
}

// App is the long-lived context shared by every view of one session
type App struct {
	Store    *query.Store
	Notifier output.Notifier

	sessions       SessionSaver
	staleTime      time.Duration
	scopedFeedKeys bool
	now            func() time.Time

	watchSession sync.Once
}

// AppOption configures an App
type AppOption func(*App)

// WithStaleTime sets how long list and profile queries stay fresh
func WithStaleTime(d time.Duration) AppOption {
	return func(a *App) {
		a.staleTime = d
	}
}

// WithScopedFeedKeys caches each feed under its own (type, scope) key instead
// of the shared ["posts"] key
func WithScopedFeedKeys(scoped bool) AppOption {
	return func(a *App) {
		a.scopedFeedKeys = scoped
	}
}

// WithSessionSaver persists sessions started by Login and Signup
func WithSessionSaver(s SessionSaver) AppOption {
	return func(a *App) {
		a.sessions = s
	}
}

// WithClock overrides time.Now for rendering
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		a.now = now
	}
}

// NewApp creates the view context
func NewApp(store *query.Store, notifier output.Notifier, opts ...AppOption) *App {
	a := &App{
		Store:     store,
		Notifier:  notifier,
		staleTime: 30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) queryOptions() query.Options {
	return query.Options{StaleTime: a.staleTime}
}

// errorMessage is the text shown to the user for err
func errorMessage(err error) string {
	if cliErr := clierrors.CategorizeError(err); cliErr != nil && cliErr.Message != "" {
		return cliErr.Message
	}
	return "Something went wrong"
}

func (a *App) notifyError(err error) {
	if a.Notifier != nil {
		a.Notifier.Error(errorMessage(err))
	}
}

func (a *App) notifySuccess(msg string) {
	if a.Notifier != nil {
		a.Notifier.Success(msg)
	}
}

// invalidate drops each key, reporting the first refetch failure
func (a *App) invalidate(ctx context.Context, keys ...query.Key) error {
	var first error
	for _, k := range keys {
		if err := a.Store.Invalidate(ctx, k); err != nil && first == nil {
			first = err
		}
	}
	return first
}
