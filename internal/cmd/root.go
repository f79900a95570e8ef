package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/client"
	"github.com/zfogg/threadline/pkg/config"
	"github.com/zfogg/threadline/pkg/credentials"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/logger"
	"github.com/zfogg/threadline/pkg/output"
	"github.com/zfogg/threadline/pkg/view"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

// app is the view context of the running command
var app *view.App

var rootCmd = &cobra.Command{
	Use:   "threadline",
	Short: "Threadline - social feeds from the terminal",
	Long: `Threadline is a command-line client for a small social network:
read feeds, like and comment on posts, follow people and edit
your profile without leaving the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		logger.Init(verbose)

		// The flag wins over output.format from the config file
		if cmd.Flags().Changed("output") {
			config.Set("output.format", outputFmt)
		}
		if !output.ValidateOutputFormat(config.GetString("output.format")) {
			return clierrors.ValidationError("output", "must be one of text, json, table")
		}

		client.Init()
		creds, err := credentials.Load()
		if err != nil {
			logger.Warn("Failed to load credentials", "error", err)
		} else if creds.IsValid() {
			client.SetSessionCookies(creds.HTTPCookies())
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		app = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Command failed", "error", err)
		closeApp()
		fmt.Fprint(os.Stderr, clierrors.FormatError(err))
		os.Exit(1)
	}
}

func closeApp() {
	if app == nil {
		return
	}
	if err := app.Store.Close(); err != nil {
		logger.Warn("Failed to close query cache", "error", err)
	}
	app = nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/threadline/config.toml)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "text", "Output format: text, json, table")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}
