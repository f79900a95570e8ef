package view

import (
	"context"
	"sync"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/query"
)

// ProfilePage shows one user's profile, their post count and a posts/likes feed
type ProfilePage struct {
	app      *App
	username string
	feed     *Feed
	editor   *ProfileEditor

	mu          sync.Mutex
	err         error
	following   bool
	unsubscribe func()
}

// NewProfilePage creates the page for username. Call Load before reading it.
func (a *App) NewProfilePage(username string) *ProfilePage {
	p := &ProfilePage{
		app:      a,
		username: username,
		feed:     a.NewFeed(FeedPosts, username, ""),
	}
	p.editor = newProfileEditor(p)
	return p
}

// Username returns the viewed username
func (p *ProfilePage) Username() string {
	return p.username
}

// Feed returns the page's posts/likes feed
func (p *ProfilePage) Feed() *Feed {
	return p.feed
}

// Editor returns the profile editor of the page
func (p *ProfilePage) Editor() *ProfileEditor {
	return p.editor
}

// Load fetches the profile, the user's post list and the current tab
func (p *ProfilePage) Load(ctx context.Context) error {
	p.mu.Lock()
	if p.unsubscribe == nil {
		p.unsubscribe = p.app.Store.Subscribe(ProfileKey(p.username), func(query.Entry) {})
	}
	p.mu.Unlock()

	profile, err := query.Fetch(ctx, p.app.Store, ProfileKey(p.username), func(ctx context.Context) (*api.User, error) {
		return api.GetUserProfile(ctx, p.username)
	}, p.app.queryOptions())

	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	if err != nil {
		return err
	}

	if _, err := query.Fetch(ctx, p.app.Store, UserPostsKey(p.username), func(ctx context.Context) ([]*api.Post, error) {
		return api.GetUserPosts(ctx, p.username)
	}, p.app.queryOptions()); err != nil {
		logger.Debug("Failed to load post count", "username", p.username, "error", err)
	}

	p.feed.SetScope(p.username, profile.ID)
	return p.feed.Load(ctx)
}

// Err returns the error of the last profile load
func (p *ProfilePage) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Profile returns the cached profile, or nil if it is not loaded
func (p *ProfilePage) Profile() *api.User {
	u, ok := query.GetData[*api.User](p.app.Store, ProfileKey(p.username))
	if !ok {
		return nil
	}
	return u
}

// PostCount returns the number of posts the user has
func (p *ProfilePage) PostCount() int {
	posts, _ := query.GetData[[]*api.Post](p.app.Store, UserPostsKey(p.username))
	return len(posts)
}

// IsMyProfile reports whether the viewed profile is the session user's
func (p *ProfilePage) IsMyProfile() bool {
	me := p.app.CurrentUser()
	return me != nil && me.Username == p.username
}

// IsFollowing reports whether the session user follows the viewed profile
func (p *ProfilePage) IsFollowing() bool {
	profile := p.Profile()
	if profile == nil {
		return false
	}
	return p.app.CurrentUser().IsFollowing(profile.ID)
}

// IsTogglingFollow reports whether a follow toggle is in flight
func (p *ProfilePage) IsTogglingFollow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.following
}

// SetTab switches between the user's posts and likes
func (p *ProfilePage) SetTab(ctx context.Context, t FeedType) error {
	return p.feed.SetType(ctx, t)
}

// ToggleFollow follows or unfollows the viewed user. Follow state is then
// re-read from the backend through invalidation.
func (p *ProfilePage) ToggleFollow(ctx context.Context) error {
	profile := p.Profile()
	if profile == nil {
		return ErrNotLoaded
	}
	if p.IsMyProfile() {
		return ErrFollowSelf
	}

	p.mu.Lock()
	if p.following {
		p.mu.Unlock()
		return ErrPending
	}
	p.following = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.following = false
		p.mu.Unlock()
	}()

	msg, err := api.FollowUser(ctx, profile.ID)
	if err != nil {
		p.app.notifyError(err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if msg != "" {
		p.app.notifySuccess(msg)
	}
	return p.app.invalidate(ctx, AuthUserKey, SuggestedUsersKey, ProfileKey(p.username))
}

// Close tears down the page's subscriptions
func (p *ProfilePage) Close() {
	p.feed.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
}
