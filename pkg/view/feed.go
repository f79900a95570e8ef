package view

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/query"
)

// FeedType selects which endpoint fills a feed
type FeedType string

const (
	FeedForYou    FeedType = "for-you"
	FeedFollowing FeedType = "following"
	FeedPosts     FeedType = "posts"
	FeedLikes     FeedType = "likes"
)

// ParseFeedType accepts the CLI spelling and the camel-case form
func ParseFeedType(s string) FeedType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "for-you", "foryou", "for_you":
		return FeedForYou
	case "following":
		return FeedFollowing
	case "posts":
		return FeedPosts
	case "likes":
		return FeedLikes
	default:
		return FeedType(s)
	}
}

// Endpoint maps a feed type to its backend path. Unknown types fall back to
// the for-you feed.
func Endpoint(t FeedType, username, userID string) string {
	switch t {
	case FeedForYou:
		return "/posts/all"
	case FeedFollowing:
		return "/posts/flowing"
	case FeedPosts:
		return "/posts/user/" + url.PathEscape(username)
	case FeedLikes:
		return "/posts/likePost/" + url.PathEscape(userID)
	default:
		return "/posts/all"
	}
}

// FeedKey is the cache key of a feed. Every feed shares ["posts"] unless
// scoped keys are enabled.
func (a *App) FeedKey(t FeedType, scope string) query.Key {
	if !a.scopedFeedKeys {
		return PostsKey
	}
	if scope == "" {
		return query.Key{"posts", string(t)}
	}
	return query.Key{"posts", string(t), scope}
}

// FeedState is the render state of a feed
type FeedState int

const (
	FeedLoading FeedState = iota
	FeedEmpty
	FeedPopulated
	FeedError
)

func (s FeedState) String() string {
	switch s {
	case FeedLoading:
		return "loading"
	case FeedEmpty:
		return "empty"
	case FeedPopulated:
		return "populated"
	case FeedError:
		return "error"
	default:
		return "unknown"
	}
}

// Feed is a list of posts loaded from one of the feed endpoints
type Feed struct {
	app *App

	mu          sync.Mutex
	feedType    FeedType
	username    string
	userID      string
	loading     bool
	err         error
	items       map[string]*PostItem
	subscribed  string
	unsubscribe func()
	onChange    func()
}

// NewFeed creates a feed view. username and userID scope the posts and
// likes feeds; the other types ignore them.
func (a *App) NewFeed(t FeedType, username, userID string) *Feed {
	return &Feed{
		app:      a,
		feedType: t,
		username: username,
		userID:   userID,
		items:    make(map[string]*PostItem),
	}
}

// Type returns the current feed type
func (f *Feed) Type() FeedType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedType
}

func (f *Feed) scopeLocked() string {
	switch f.feedType {
	case FeedPosts:
		return f.username
	case FeedLikes:
		return f.userID
	default:
		return ""
	}
}

// Key returns the cache key the feed reads
func (f *Feed) Key() query.Key {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.app.FeedKey(f.feedType, f.scopeLocked())
}

// Endpoint returns the path the feed loads from
func (f *Feed) Endpoint() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Endpoint(f.feedType, f.username, f.userID)
}

// OnChange registers a callback run after every write to the feed's entry
func (f *Feed) OnChange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// subscribeLocked keeps exactly one subscription, on the current key
func (f *Feed) subscribeLocked(key query.Key) {
	if f.subscribed == key.String() && f.unsubscribe != nil {
		return
	}
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
	f.subscribed = key.String()
	f.unsubscribe = f.app.Store.Subscribe(key, func(e query.Entry) {
		f.mu.Lock()
		// A reload started elsewhere, e.g. by Invalidate, settles the feed too
		if e.HasData && e.Err == nil && !e.IsFetching && e.Source == Endpoint(f.feedType, f.username, f.userID) {
			f.err = nil
		}
		fn := f.onChange
		f.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (f *Feed) fetch(ctx context.Context, force bool) error {
	f.mu.Lock()
	key := f.app.FeedKey(f.feedType, f.scopeLocked())
	endpoint := Endpoint(f.feedType, f.username, f.userID)
	f.subscribeLocked(key)
	f.loading = true
	f.mu.Unlock()

	opts := f.app.queryOptions()
	opts.Force = force
	// A shared key may hold posts another endpoint loaded
	opts.Source = endpoint
	_, err := query.Fetch(ctx, f.app.Store, key, func(ctx context.Context) ([]*api.Post, error) {
		return api.GetPosts(ctx, endpoint)
	}, opts)

	f.mu.Lock()
	f.loading = false
	f.err = err
	f.mu.Unlock()

	if err != nil {
		logger.Debug("Feed load failed", "endpoint", endpoint, "error", err)
	}
	return err
}

// Load reads the feed, using cached posts while they are fresh
func (f *Feed) Load(ctx context.Context) error {
	return f.fetch(ctx, false)
}

// Refresh reloads the feed regardless of freshness
func (f *Feed) Refresh(ctx context.Context) error {
	return f.fetch(ctx, true)
}

// SetType switches the feed. Posts another endpoint left under a shared key
// are never shown for the new type.
func (f *Feed) SetType(ctx context.Context, t FeedType) error {
	f.mu.Lock()
	f.feedType = t
	f.mu.Unlock()
	return f.fetch(ctx, false)
}

// SetScope changes the profile the posts and likes feeds belong to
func (f *Feed) SetScope(username, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.username = username
	f.userID = userID
}

// Posts returns the cached posts of the feed. Posts another endpoint left
// under a shared key are not returned.
func (f *Feed) Posts() []*api.Post {
	posts, _ := f.cached()
	return posts
}

func (f *Feed) cached() ([]*api.Post, bool) {
	f.mu.Lock()
	key := f.app.FeedKey(f.feedType, f.scopeLocked())
	endpoint := Endpoint(f.feedType, f.username, f.userID)
	f.mu.Unlock()

	if e, ok := f.app.Store.Get(key); !ok || e.Source != endpoint {
		return nil, false
	}
	return query.GetData[[]*api.Post](f.app.Store, key)
}

// Err returns the error of the last load
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// State reports exactly one of loading, error, empty or populated
func (f *Feed) State() FeedState {
	key := f.Key()
	entry, ok := f.app.Store.Get(key)

	f.mu.Lock()
	loading, err := f.loading, f.err
	f.mu.Unlock()

	switch {
	case loading || (ok && entry.IsFetching):
		return FeedLoading
	case err != nil:
		return FeedError
	}

	posts, ok := f.cached()
	switch {
	case !ok:
		return FeedLoading
	case len(posts) == 0:
		return FeedEmpty
	default:
		return FeedPopulated
	}
}

// Item returns the view of a post currently in the feed
func (f *Feed) Item(postID string) (*PostItem, bool) {
	for _, p := range f.Posts() {
		if p.ID == postID {
			return f.item(postID), true
		}
	}
	return nil, false
}

// Items returns one view per cached post, keeping drafts and pending flags
// of posts that are still present
func (f *Feed) Items() []*PostItem {
	posts := f.Posts()

	f.mu.Lock()
	defer f.mu.Unlock()

	present := make(map[string]bool, len(posts))
	out := make([]*PostItem, 0, len(posts))
	for _, p := range posts {
		present[p.ID] = true
		out = append(out, f.itemLocked(p.ID))
	}
	for id := range f.items {
		if !present[id] {
			delete(f.items, id)
		}
	}
	return out
}

func (f *Feed) item(postID string) *PostItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemLocked(postID)
}

func (f *Feed) itemLocked(postID string) *PostItem {
	it, ok := f.items[postID]
	if !ok {
		it = &PostItem{feed: f, id: postID}
		f.items[postID] = it
	}
	return it
}

// Close drops the feed's subscription
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
		f.subscribed = ""
	}
}
