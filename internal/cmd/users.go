package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/view"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Discover people",
}

var usersSuggestedCmd = &cobra.Command{
	Use:   "suggested",
	Short: "Show who to follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(cmd); err != nil {
			return err
		}
		users, err := app.SuggestedUsers(cmd.Context())
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(users))
		for _, u := range users {
			rows = append(rows, []string{
				"@" + u.Username,
				u.Fullname,
				fmt.Sprint(len(u.Followers)),
				view.ProfileRoute(u.Username),
			})
		}
		return output.PrintList("Who to follow", users, []string{"Username", "Name", "Followers", "Profile"}, rows)
	},
}

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notifs"},
	Short:   "List or clear your notifications",
	RunE:    listNotifications,
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your notifications",
	RunE:  listNotifications,
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := requireSession(cmd); err != nil {
			return err
		}
		return app.ClearNotifications(cmd.Context())
	},
}

func init() {
	usersCmd.AddCommand(usersSuggestedCmd)
	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsClearCmd)
}

func listNotifications(cmd *cobra.Command, args []string) error {
	if _, err := requireSession(cmd); err != nil {
		return err
	}
	list, err := app.Notifications(cmd.Context())
	if err != nil {
		return err
	}
	if output.GetOutputFormat() == output.FormatJSON {
		return output.Print("", list)
	}
	view.RenderNotifications(output.Writer(), list)
	return nil
}
