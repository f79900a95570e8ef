package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/api"
	"github.com/zfogg/threadline/pkg/credentials"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/prompter"
	"github.com/zfogg/threadline/pkg/view"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authentication commands",
	Long:  "Log in, sign up and inspect the current session",
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Display the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		me, err := app.Session(cmd.Context())
		if err != nil {
			return err
		}
		if me == nil {
			output.PrintWarning("Not logged in")
			return nil
		}
		return printUser(&me.User)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to Threadline",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleLogin(cmd)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return handleSignup(cmd)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget cached data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Logout(cmd.Context())
	},
}

func init() {
	authCmd.AddCommand(meCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(signupCmd)
	authCmd.AddCommand(logoutCmd)
}

func handleLogin(cmd *cobra.Command) error {
	creds, err := credentials.Load()
	if err != nil {
		return err
	}
	if creds.IsValid() {
		output.PrintWarning("Already logged in as %s", creds.Username)
		confirm, err := prompter.PromptConfirm("Continue with new login?")
		if err != nil {
			return err
		}
		if !confirm {
			return nil
		}
	}

	username, err := prompter.PromptString("Username: ")
	if err != nil {
		return err
	}
	if username == "" {
		return clierrors.ValidationError("username", "cannot be empty")
	}

	password, err := prompter.PromptPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return clierrors.ValidationError("password", "cannot be empty")
	}

	_, err = app.Login(cmd.Context(), username, password)
	return err
}

func handleSignup(cmd *cobra.Command) error {
	var req api.SignupRequest
	var err error

	if req.Email, err = prompter.PromptString("Email: "); err != nil {
		return err
	}
	if req.Username, err = prompter.PromptString("Username: "); err != nil {
		return err
	}
	if req.Fullname, err = prompter.PromptString("Full name: "); err != nil {
		return err
	}
	if req.Password, err = prompter.PromptPassword("Password: "); err != nil {
		return err
	}

	switch {
	case req.Email == "":
		return clierrors.ValidationError("email", "cannot be empty")
	case req.Username == "":
		return clierrors.ValidationError("username", "cannot be empty")
	case len(req.Password) < 6:
		return clierrors.ValidationError("password", "must be at least 6 characters long")
	}

	_, err = app.Signup(cmd.Context(), req)
	return err
}

// requireSession resolves the session or fails with a login hint
func requireSession(cmd *cobra.Command) (*api.User, error) {
	me, err := app.Session(cmd.Context())
	if err != nil {
		return nil, err
	}
	if me == nil {
		return nil, clierrors.UnauthorizedError()
	}
	return &me.User, nil
}

func printUser(u *api.User) error {
	if output.GetOutputFormat() == output.FormatJSON {
		return output.Print("", u)
	}
	record := map[string]interface{}{
		"id":        u.ID,
		"username":  "@" + u.Username,
		"name":      u.Fullname,
		"followers": len(u.Followers),
		"following": len(u.Following),
	}
	if u.Email != "" {
		record["email"] = u.Email
	}
	if u.Bio != "" {
		record["bio"] = u.Bio
	}
	if u.Link != "" {
		record["link"] = u.Link
	}
	if joined := view.JoinedDate(u.CreatedAt); joined != "" {
		record["joined"] = joined
	}
	return output.PrintRecord("User", record)
}
