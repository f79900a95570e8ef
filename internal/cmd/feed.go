package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/view"
)

var (
	feedRefresh bool
	feedLikes   bool
)

var feedCmd = &cobra.Command{
	Use:       "feed [for-you|following]",
	Short:     "View the for-you or following feed",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"for-you", "following"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(cmd); err != nil {
			return err
		}

		ft := view.FeedForYou
		if len(args) == 1 {
			ft = view.ParseFeedType(args[0])
			if ft != view.FeedForYou && ft != view.FeedFollowing {
				return fmt.Errorf("unknown feed %q (want for-you or following)", args[0])
			}
		}

		feed := app.NewFeed(ft, "", "")
		defer feed.Close()
		return showFeed(cmd, feed)
	},
}

var feedUserCmd = &cobra.Command{
	Use:   "user <username>",
	Short: "View a user's posts or likes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(cmd); err != nil {
			return err
		}

		page := app.NewProfilePage(args[0])
		defer page.Close()
		if err := page.Load(cmd.Context()); err != nil {
			return err
		}
		if feedLikes {
			if err := page.SetTab(cmd.Context(), view.FeedLikes); err != nil {
				return err
			}
		}
		return printFeed(page.Feed())
	},
}

func init() {
	feedCmd.Flags().BoolVar(&feedRefresh, "refresh", false, "Ignore cached posts")
	feedUserCmd.Flags().BoolVar(&feedLikes, "likes", false, "Show posts the user liked")
	feedCmd.AddCommand(feedUserCmd)
}

func showFeed(cmd *cobra.Command, feed *view.Feed) error {
	load := feed.Load
	if feedRefresh {
		load = feed.Refresh
	}
	if err := load(cmd.Context()); err != nil {
		return err
	}
	return printFeed(feed)
}

func printFeed(feed *view.Feed) error {
	switch output.GetOutputFormat() {
	case output.FormatJSON:
		posts := feed.Posts()
		if posts == nil {
			posts = []*api.Post{}
		}
		return output.Print("", posts)
	case output.FormatTable:
		posts := feed.Posts()
		rows := make([][]string, 0, len(posts))
		for _, p := range posts {
			rows = append(rows, []string{
				p.ID,
				"@" + p.User.Username,
				shorten(p.Text, 40),
				fmt.Sprint(len(p.Liked)),
				fmt.Sprint(len(p.Comments)),
				view.RelativeTime(p.CreatedAt, time.Now()),
			})
		}
		return output.PrintList("", posts, []string{"ID", "Author", "Text", "Likes", "Comments", "Posted"}, rows)
	default:
		feed.Render(output.Writer())
		return nil
	}
}

func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}
