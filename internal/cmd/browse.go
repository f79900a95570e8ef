package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/prompter"
	"github.com/zfogg/threadline/pkg/view"
)

const browseHelp = `Commands:
  home                      for-you feed
  following                 posts of people you follow
  profile [username]        a profile (yours by default)
  tab posts|likes           switch the profile tab
  follow                    follow or unfollow the open profile
  like <id>                 like or unlike a post
  comment <id> <text>       reply to a post
  comments <id>             show the replies of a post
  delete <id>               delete one of your posts
  post <text>               publish a post
  notifications             list notifications
  refresh                   reload the current page
  go <path>                 open a route, e.g. /profile/alice
  stats                     query cache counters
  quit
`

// browser is one interactive session. Every page reads through the same
// App so likes and comments show up on every page that lists the post.
type browser struct {
	cmd      *cobra.Command
	route    string
	homeType view.FeedType
	home     *view.Feed
	page     *view.ProfilePage
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse interactively with a shared cache",
	Long: `Open an interactive session. Pages share one query cache, so moving
between feeds and profiles only refetches what is stale or invalidated.
Type "help" for the list of commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		b := &browser{cmd: cmd, homeType: view.FeedForYou}
		defer b.close()

		if err := b.open(view.RouteHome); err != nil {
			return err
		}
		for {
			line, err := prompter.PromptString(fmt.Sprintf("%s> ", b.route))
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(output.Writer())
				return nil
			}
			if err != nil {
				return err
			}
			if line == "" {
				continue
			}

			quit, err := b.exec(line)
			if err != nil {
				// A failed command must not end the session
				fmt.Fprint(output.Writer(), clierrors.FormatError(err))
			}
			if quit {
				return nil
			}
		}
	},
}

func (b *browser) close() {
	if b.home != nil {
		b.home.Close()
	}
	if b.page != nil {
		b.page.Close()
	}
}

// open navigates to path through the route gate and renders the landing page
func (b *browser) open(path string) error {
	ctx := b.cmd.Context()
	dest, err := app.Navigate(ctx, path)
	if err != nil {
		return err
	}

	if dest == view.RouteLogin || dest == view.RouteSignup {
		b.route = dest
		output.PrintInfo("Not logged in")
		if dest == view.RouteSignup {
			err = handleSignup(b.cmd)
		} else {
			err = handleLogin(b.cmd)
		}
		if err != nil {
			return err
		}
		if app.CurrentUser() == nil {
			return clierrors.UnauthorizedError()
		}
		// The previous user's feeds were cleared on login
		b.close()
		b.home, b.page = nil, nil
		return b.open(view.RouteHome)
	}

	b.route = dest
	switch {
	case dest == view.RouteNotifications:
		return listNotifications(b.cmd, nil)
	case strings.HasPrefix(dest, view.RouteProfilePrefix):
		return b.openProfile(strings.TrimPrefix(dest, view.RouteProfilePrefix))
	default:
		return b.openHome()
	}
}

func (b *browser) openHome() error {
	ctx := b.cmd.Context()
	t := b.homeType
	if b.home == nil {
		b.home = app.NewFeed(t, "", "")
		if err := b.home.Load(ctx); err != nil {
			return err
		}
	} else if err := b.home.SetType(ctx, t); err != nil {
		return err
	}
	b.home.Render(output.Writer())
	return nil
}

func (b *browser) openProfile(username string) error {
	if b.page != nil && b.page.Username() != username {
		b.page.Close()
		b.page = nil
	}
	if b.page == nil {
		b.page = app.NewProfilePage(username)
	}
	err := b.page.Load(b.cmd.Context())
	b.page.Render(output.Writer())
	return err
}

// feed is the list the current page shows
func (b *browser) feed() *view.Feed {
	if strings.HasPrefix(b.route, view.RouteProfilePrefix) && b.page != nil {
		return b.page.Feed()
	}
	if b.home == nil {
		b.home = app.NewFeed(b.homeType, "", "")
	}
	return b.home
}

func (b *browser) item(id string) (*view.PostItem, error) {
	return findPost(b.cmd.Context(), b.feed(), id)
}

func (b *browser) exec(line string) (bool, error) {
	ctx := b.cmd.Context()
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		fmt.Fprint(output.Writer(), browseHelp)
		return false, nil
	case "home", "feed":
		b.homeType = view.FeedForYou
		return false, b.open(view.RouteHome)
	case "following":
		b.homeType = view.FeedFollowing
		return false, b.open(view.RouteHome)
	case "profile":
		username := ""
		if len(args) > 0 {
			username = strings.TrimPrefix(args[0], "@")
		} else if me := app.CurrentUser(); me != nil {
			username = me.Username
		}
		return false, b.open(view.ProfileRoute(username))
	case "notifications", "notifs":
		return false, b.open(view.RouteNotifications)
	case "go":
		if len(args) != 1 {
			return false, clierrors.ValidationError("path", "usage: go <path>")
		}
		return false, b.open(args[0])
	case "stats":
		return false, printCacheStats(app.Store)
	case "refresh":
		return false, b.refresh()
	}

	if strings.HasPrefix(b.route, "/login") || strings.HasPrefix(b.route, "/signup") {
		return false, clierrors.UnauthorizedError()
	}

	switch name {
	case "tab":
		if b.page == nil || !strings.HasPrefix(b.route, view.RouteProfilePrefix) {
			return false, clierrors.ValidationError("tab", "open a profile first")
		}
		if len(args) != 1 {
			return false, clierrors.ValidationError("tab", "usage: tab posts|likes")
		}
		if err := b.page.SetTab(ctx, view.ParseFeedType(args[0])); err != nil {
			return false, err
		}
		b.page.Render(output.Writer())
	case "follow":
		if b.page == nil || !strings.HasPrefix(b.route, view.RouteProfilePrefix) {
			return false, clierrors.ValidationError("follow", "open a profile first")
		}
		if err := b.page.ToggleFollow(ctx); err != nil {
			return false, err
		}
		b.page.Render(output.Writer())
	case "like", "comments", "delete":
		if len(args) != 1 {
			return false, clierrors.ValidationError("id", fmt.Sprintf("usage: %s <id>", name))
		}
		item, err := b.item(args[0])
		if err != nil {
			return false, err
		}
		switch name {
		case "like":
			err = item.Like(ctx)
		case "comments":
			item.RenderComments(output.Writer())
		case "delete":
			if !item.IsMine() {
				return false, clierrors.ForbiddenError()
			}
			if err = item.Delete(ctx); err == nil {
				b.feed().Render(output.Writer())
			}
		}
		return false, err
	case "comment":
		if len(args) < 2 {
			return false, clierrors.ValidationError("text", "usage: comment <id> <text>")
		}
		item, err := b.item(args[0])
		if err != nil {
			return false, err
		}
		item.SetDraft(strings.Join(args[1:], " "))
		if err := item.Comment(ctx); err != nil {
			return false, err
		}
		item.RenderComments(output.Writer())
	case "post":
		text := strings.TrimSpace(strings.TrimPrefix(line, name))
		if text == "" {
			return false, clierrors.ValidationError("text", "usage: post <text>")
		}
		if _, err := app.CreatePost(ctx, text, ""); err != nil {
			return false, err
		}
		b.feed().Render(output.Writer())
	default:
		return false, fmt.Errorf("unknown command %q (type help)", name)
	}
	return false, nil
}

func (b *browser) refresh() error {
	ctx := b.cmd.Context()
	switch {
	case b.route == view.RouteNotifications:
		return listNotifications(b.cmd, nil)
	case strings.HasPrefix(b.route, view.RouteProfilePrefix) && b.page != nil:
		if err := b.page.Feed().Refresh(ctx); err != nil {
			return err
		}
		b.page.Render(output.Writer())
	default:
		if err := b.feed().Refresh(ctx); err != nil {
			return err
		}
		b.feed().Render(output.Writer())
	}
	return nil
}
