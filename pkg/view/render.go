package view

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/output"
)

const (
	skeletonCount = 3
	emptyFeedText = "No posts in this tab. Switch 👻"
	noCommentText = "No comments yet 🤔 Be the first one 😉"
)

// Render writes the feed in its current state
func (f *Feed) Render(w io.Writer) {
	switch f.State() {
	case FeedLoading:
		for i := 0; i < skeletonCount; i++ {
			output.Faint.Fprintln(w, "  ░░░░  ░░░░░░░░░░░░")
			output.Faint.Fprintln(w, "        ░░░░░░░░░░░░░░░░░░░░░░░░")
			fmt.Fprintln(w)
		}
	case FeedError:
		output.Failure.Fprintf(w, "✗ %s\n", errorMessage(f.Err()))
	case FeedEmpty:
		fmt.Fprintf(w, "%s\n", emptyFeedText)
	case FeedPopulated:
		now := f.app.now()
		for i, it := range f.Items() {
			it.render(w, i+1, now)
		}
	}
}

func (p *PostItem) render(w io.Writer, n int, now time.Time) {
	post := p.Post()
	if post == nil {
		return
	}

	fmt.Fprintf(w, "%d. ", n)
	output.Bold.Fprint(w, displayName(&post.User))
	output.Faint.Fprintf(w, " @%s · %s", post.User.Username, RelativeTime(post.CreatedAt, now))
	if p.IsMine() {
		output.Accent.Fprint(w, " (you)")
	}
	fmt.Fprintln(w)

	if post.Text != "" {
		fmt.Fprintf(w, "   %s\n", strings.ReplaceAll(post.Text, "\n", "\n   "))
	}
	if post.Img != "" {
		output.Info.Fprintf(w, "   [image] %s\n", truncate(post.Img, 60))
	}

	heart := "♡"
	if p.IsLiked() {
		heart = output.Failure.Sprint("♥")
	}
	output.Faint.Fprintf(w, "   %s %d  💬 %d  ", heart, len(post.Liked), len(post.Comments))
	output.Faint.Fprintf(w, "id:%s\n", post.ID)

	if p.IsLiking() || p.IsCommenting() || p.IsDeleting() {
		output.Warning.Fprintln(w, "   …")
	}
	fmt.Fprintln(w)
}

// RenderComments writes the comment thread of the post
func (p *PostItem) RenderComments(w io.Writer) {
	post := p.Post()
	if post == nil {
		return
	}

	output.Bold.Fprintln(w, "COMMENTS")
	if len(post.Comments) == 0 {
		fmt.Fprintln(w, noCommentText)
		return
	}
	for _, c := range post.Comments {
		output.Bold.Fprint(w, displayName(&c.User))
		output.Faint.Fprintf(w, " @%s\n", c.User.Username)
		fmt.Fprintf(w, "  %s\n", c.Text)
	}
}

// Render writes the profile header and the current tab
func (p *ProfilePage) Render(w io.Writer) {
	profile := p.Profile()
	if profile == nil {
		if p.Err() != nil {
			output.Bold.Fprintln(w, "User not found")
			return
		}
		output.Faint.Fprintln(w, "Loading profile…")
		return
	}

	output.Bold.Fprint(w, displayName(profile))
	output.Faint.Fprintf(w, "  %d posts\n", p.PostCount())
	output.Faint.Fprintf(w, "@%s\n", profile.Username)
	if profile.Bio != "" {
		fmt.Fprintln(w, profile.Bio)
	}
	if profile.Link != "" {
		output.Info.Fprintf(w, "🔗 %s\n", profile.Link)
	}
	if joined := JoinedDate(profile.CreatedAt); joined != "" {
		output.Faint.Fprintln(w, "📅 "+joined)
	}
	fmt.Fprintf(w, "%d Following  %d Followers\n", len(profile.Following), len(profile.Followers))

	switch {
	case p.IsMyProfile():
		output.Accent.Fprintln(w, "[Edit profile]")
	case p.IsTogglingFollow():
		output.Accent.Fprintln(w, "[Loading...]")
	case p.IsFollowing():
		output.Accent.Fprintln(w, "[Unfollow]")
	default:
		output.Accent.Fprintln(w, "[Follow]")
	}
	fmt.Fprintln(w)

	tabs := []FeedType{FeedPosts, FeedLikes}
	current := p.feed.Type()
	for i, t := range tabs {
		if i > 0 {
			fmt.Fprint(w, "  ")
		}
		if t == current {
			output.Bold.Fprint(w, strings.ToUpper(string(t)))
		} else {
			output.Faint.Fprint(w, strings.ToUpper(string(t)))
		}
	}
	fmt.Fprint(w, "\n\n")

	p.feed.Render(w)
}

// RenderNotifications writes a notification list
func RenderNotifications(w io.Writer, list []api.Notification) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No notifications 🤔")
		return
	}
	for _, n := range list {
		output.Bold.Fprintf(w, "@%s", n.From.Username)
		switch n.Type {
		case "follow":
			fmt.Fprintln(w, " followed you")
		case "like":
			fmt.Fprintln(w, " liked your post")
		default:
			fmt.Fprintf(w, " %s\n", n.Type)
		}
	}
}

func displayName(u *api.User) string {
	if u.Fullname != "" {
		return u.Fullname
	}
	return u.Username
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
