package view

import (
	"context"
	"sync"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/query"
)

// PostItem is the view of one post inside a feed. It owns the comment draft
// and the pending flags of its mutations; everything else is read from the
// feed's cache entry on demand.
type PostItem struct {
	feed *Feed
	id   string

	mu         sync.Mutex
	draft      string
	liking     bool
	commenting bool
	deleting   bool
}

// ID returns the post id
func (p *PostItem) ID() string {
	return p.id
}

// Post returns the current cached post, or nil once it left the feed
func (p *PostItem) Post() *api.Post {
	for _, post := range p.feed.Posts() {
		if post.ID == p.id {
			return post
		}
	}
	return nil
}

// IsLiked reports whether the session user is among the post's likers
func (p *PostItem) IsLiked() bool {
	me := p.feed.app.CurrentUser()
	if me == nil {
		return false
	}
	return p.Post().LikedBy(me.ID)
}

// IsMine reports whether the session user owns the post
func (p *PostItem) IsMine() bool {
	me := p.feed.app.CurrentUser()
	post := p.Post()
	return me != nil && post != nil && post.User.ID == me.ID
}

// Draft returns the comment being typed
func (p *PostItem) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// SetDraft replaces the comment being typed
func (p *PostItem) SetDraft(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.draft = text
}

// IsLiking reports whether a like toggle is in flight
func (p *PostItem) IsLiking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.liking
}

// IsCommenting reports whether a comment is being submitted
func (p *PostItem) IsCommenting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.commenting
}

// IsDeleting reports whether a delete is in flight
func (p *PostItem) IsDeleting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deleting
}

// begin sets a pending flag, refusing if it is already set
func (p *PostItem) begin(flag *bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

func (p *PostItem) end(flag *bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*flag = false
}

// patch rewrites the matching post in the feed entry, leaving every other
// post untouched
func (p *PostItem) patch(fn func(post api.Post) api.Post) bool {
	return query.Update(p.feed.app.Store, p.feed.Key(), func(old []*api.Post) []*api.Post {
		out := make([]*api.Post, len(old))
		for i, post := range old {
			if post.ID == p.id {
				patched := fn(*post)
				post = &patched
			}
			out[i] = post
		}
		return out
	})
}

// Like toggles the session user's like. On success the post's liker list is
// replaced with the one the backend returns.
func (p *PostItem) Like(ctx context.Context) error {
	if !p.begin(&p.liking) {
		return ErrPending
	}
	defer p.end(&p.liking)

	liked, err := api.LikePost(ctx, p.id)
	if err != nil {
		p.feed.app.notifyError(err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.patch(func(post api.Post) api.Post {
		post.Liked = liked
		return post
	})
	logger.Debug("Post like toggled", "post_id", p.id, "likes", len(liked))
	return nil
}

// Comment submits the draft. On success the comment is appended locally with
// the session user as author and the draft is cleared.
func (p *PostItem) Comment(ctx context.Context) error {
	me := p.feed.app.CurrentUser()
	if me == nil {
		return ErrNoSession
	}
	if !p.begin(&p.commenting) {
		return ErrPending
	}
	defer p.end(&p.commenting)

	text := p.Draft()
	if err := api.CommentOnPost(ctx, p.id, text); err != nil {
		p.feed.app.notifyError(err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.patch(func(post api.Post) api.Post {
		comments := make([]api.Comment, len(post.Comments), len(post.Comments)+1)
		copy(comments, post.Comments)
		post.Comments = append(comments, api.Comment{Text: text, User: *me})
		return post
	})

	p.mu.Lock()
	if p.draft == text {
		p.draft = ""
	}
	p.mu.Unlock()
	return nil
}

// Delete removes the post. On success the feed is invalidated and reloaded
// from the backend rather than filtered locally.
func (p *PostItem) Delete(ctx context.Context) error {
	if !p.begin(&p.deleting) {
		return ErrPending
	}
	defer p.end(&p.deleting)

	if err := api.DeletePost(ctx, p.id); err != nil {
		p.feed.app.notifyError(err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.feed.app.notifySuccess("Post deleted successfully")
	return p.feed.app.invalidate(ctx, PostsKey, UserPostsRoot)
}
