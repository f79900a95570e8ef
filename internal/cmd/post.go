package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/prompter"
	"github.com/zfogg/threadline/pkg/view"
)

var postImage string

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Post commands",
	Long:  "Create, like, comment on and delete posts",
}

var postCreateCmd = &cobra.Command{
	Use:   "create [text]",
	Short: "Publish a post",
	Long:  "Publish a post. Without text arguments the text is read interactively.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(cmd); err != nil {
			return err
		}

		text := strings.Join(args, " ")
		if text == "" && postImage == "" {
			var err error
			text, err = prompter.PromptMultilineString("What is happening?!", 20)
			if err != nil {
				return err
			}
		}
		if strings.TrimSpace(text) == "" && postImage == "" {
			return clierrors.ValidationError("text", "a post needs text or an image")
		}

		post, err := app.CreatePost(cmd.Context(), text, postImage)
		if err != nil {
			return err
		}
		if output.GetOutputFormat() == output.FormatJSON {
			return output.Print("", post)
		}
		output.PrintInfo("Post ID: %s", post.ID)
		return nil
	},
}

var postShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPost(cmd, args[0], func(item *view.PostItem) error {
			if output.GetOutputFormat() == output.FormatJSON {
				return output.Print("", item.Post())
			}
			w := output.Writer()
			output.Bold.Fprintln(w, item.Post().Text)
			item.RenderComments(w)
			return nil
		})
	},
}

var postLikeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like or unlike a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPost(cmd, args[0], func(item *view.PostItem) error {
			if err := item.Like(cmd.Context()); err != nil {
				return err
			}
			if item.IsLiked() {
				output.PrintSuccess("♥ Liked (%d)", len(item.Post().Liked))
			} else {
				output.PrintSuccess("♡ Unliked (%d)", len(item.Post().Liked))
			}
			return nil
		})
	},
}

var postCommentCmd = &cobra.Command{
	Use:   "comment <post-id> [text]",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPost(cmd, args[0], func(item *view.PostItem) error {
			text := strings.Join(args[1:], " ")
			if text == "" {
				var err error
				if text, err = prompter.PromptString("Post your reply: "); err != nil {
					return err
				}
			}
			item.SetDraft(text)
			if err := item.Comment(cmd.Context()); err != nil {
				return err
			}
			output.PrintSuccess("Comment posted (%d comments)", len(item.Post().Comments))
			return nil
		})
	},
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPost(cmd, args[0], func(item *view.PostItem) error {
			if !item.IsMine() {
				return clierrors.ForbiddenError()
			}
			return item.Delete(cmd.Context())
		})
	},
}

func init() {
	postCreateCmd.Flags().StringVar(&postImage, "image", "", "Attach an image file")

	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postShowCmd)
	postCmd.AddCommand(postLikeCmd)
	postCmd.AddCommand(postCommentCmd)
	postCmd.AddCommand(postDeleteCmd)
}

// withPost resolves a post inside the cached feed entry so mutations patch
// the list other views read. The for-you feed is loaded when the cache does
// not hold the post.
func withPost(cmd *cobra.Command, id string, fn func(*view.PostItem) error) error {
	if _, err := requireSession(cmd); err != nil {
		return err
	}

	feed := app.NewFeed(view.FeedForYou, "", "")
	defer feed.Close()

	item, err := findPost(cmd.Context(), feed, id)
	if err != nil {
		return err
	}
	return fn(item)
}

func findPost(ctx context.Context, feed *view.Feed, id string) (*view.PostItem, error) {
	if err := feed.Load(ctx); err != nil {
		return nil, err
	}
	if item, ok := feed.Item(id); ok {
		return item, nil
	}
	if err := feed.Refresh(ctx); err != nil {
		return nil, err
	}
	if item, ok := feed.Item(id); ok {
		return item, nil
	}
	return nil, clierrors.NotFoundError("post", id)
}
