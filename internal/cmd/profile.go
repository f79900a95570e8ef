package cmd

import (
	"context"

	"github.com/spf13/cobra"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/prompter"
	"github.com/zfogg/threadline/pkg/view"
)

var (
	profileLikes  bool
	profileCover  string
	profileAvatar string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Profile commands",
	Long:  "View profiles, follow people and edit your own profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show [username]",
	Short: "Show a profile with its posts",
	Long:  "Show a profile with its posts. Without a username your own profile is shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := requireSession(cmd)
		if err != nil {
			return err
		}
		username := me.Username
		if len(args) == 1 {
			username = args[0]
		}

		page, err := openProfile(cmd.Context(), username)
		if err != nil {
			return err
		}
		defer page.Close()

		if profileLikes {
			if err := page.SetTab(cmd.Context(), view.FeedLikes); err != nil {
				return err
			}
		}

		if output.GetOutputFormat() != output.FormatText {
			if err := printUser(page.Profile()); err != nil {
				return err
			}
			return printFeed(page.Feed())
		}
		page.Render(output.Writer())
		return nil
	},
}

var profileFollowCmd = &cobra.Command{
	Use:   "follow <username>",
	Short: "Follow or unfollow a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(cmd); err != nil {
			return err
		}
		page, err := openProfile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer page.Close()

		if err := page.ToggleFollow(cmd.Context()); err != nil {
			return err
		}
		if page.IsFollowing() {
			output.PrintInfo("Following @%s (%d followers)", args[0], len(page.Profile().Followers))
		} else {
			output.PrintInfo("Not following @%s (%d followers)", args[0], len(page.Profile().Followers))
		}
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit your profile",
	Long:  "Edit your profile interactively. Press enter to keep a field unchanged.",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := openMyProfile(cmd)
		if err != nil {
			return err
		}
		defer page.Close()
		return editProfile(cmd.Context(), page.Editor())
	},
}

var profileImagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Change your cover or profile image",
	RunE: func(cmd *cobra.Command, args []string) error {
		if profileCover == "" && profileAvatar == "" {
			return clierrors.ValidationError("images", "pass --cover and/or --avatar")
		}

		page, err := openMyProfile(cmd)
		if err != nil {
			return err
		}
		defer page.Close()

		editor := page.Editor()
		if err := previewImages(cmd.Context(), editor); err != nil {
			return err
		}
		return editor.SubmitImages(cmd.Context())
	},
}

func init() {
	profileShowCmd.Flags().BoolVar(&profileLikes, "likes", false, "Show liked posts instead of the user's posts")
	profileImagesCmd.Flags().StringVar(&profileCover, "cover", "", "Cover image file")
	profileImagesCmd.Flags().StringVar(&profileAvatar, "avatar", "", "Profile image file")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileFollowCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileImagesCmd)
}

func openProfile(ctx context.Context, username string) (*view.ProfilePage, error) {
	page := app.NewProfilePage(username)
	if err := page.Load(ctx); err != nil {
		page.Close()
		return nil, err
	}
	return page, nil
}

func openMyProfile(cmd *cobra.Command) (*view.ProfilePage, error) {
	me, err := requireSession(cmd)
	if err != nil {
		return nil, err
	}
	return openProfile(cmd.Context(), me.Username)
}

// previewImages reads the chosen image files concurrently
func previewImages(ctx context.Context, editor *view.ProfileEditor) error {
	var pending []<-chan error
	if profileCover != "" {
		pending = append(pending, editor.PreviewImage(ctx, view.SlotCover, profileCover))
	}
	if profileAvatar != "" {
		pending = append(pending, editor.PreviewImage(ctx, view.SlotProfile, profileAvatar))
	}

	var first error
	for _, ch := range pending {
		if err := <-ch; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// editProfile walks the form field by field, then submits. A rejected
// update reopens the prompts with the previous answers as defaults.
func editProfile(ctx context.Context, editor *view.ProfileEditor) error {
	if err := editor.Open(); err != nil {
		return err
	}

	for {
		form := editor.Form()
		var err error
		fields := []struct {
			label string
			value *string
		}{
			{"Full name", &form.Fullname},
			{"Username", &form.Username},
			{"Email", &form.Email},
			{"Bio", &form.Bio},
			{"Link", &form.Link},
		}
		for _, f := range fields {
			if *f.value, err = prompter.PromptDefault(f.label, *f.value); err != nil {
				editor.Cancel()
				return err
			}
		}

		change, err := prompter.PromptConfirm("Change password?")
		if err != nil {
			editor.Cancel()
			return err
		}
		if change {
			if form.CurrentPassword, err = prompter.PromptPassword("Current password: "); err != nil {
				editor.Cancel()
				return err
			}
			if form.NewPassword, err = prompter.PromptPassword("New password: "); err != nil {
				editor.Cancel()
				return err
			}
		}

		if err := editor.SetForm(form); err != nil {
			return err
		}
		submitErr := editor.Submit(ctx)
		if submitErr == nil {
			return nil
		}

		retry, err := prompter.PromptConfirm("Try again?")
		if err != nil || !retry {
			editor.Cancel()
			return submitErr
		}
	}
}
