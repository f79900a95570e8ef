package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/config"
	clierrors "github.com/zfogg/threadline/pkg/errors"
	"github.com/zfogg/threadline/pkg/output"
)

// settableKeys are the string settings `config set` may write
var settableKeys = []string{
	"api.base_url",
	"output.format",
	"log.level",
	"cache.persist",
	"cache.dir",
	"cache.redis_url",
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		record := map[string]interface{}{
			"file":                   config.GetConfigFilePath(),
			"api.base_url":           config.GetString("api.base_url"),
			"api.timeout":            config.GetInt("api.timeout"),
			"log.level":              config.GetString("log.level"),
			"cache.persist":          config.GetString("cache.persist"),
			"cache.stale_seconds":    config.GetInt("cache.stale_seconds"),
			"cache.scoped_feed_keys": config.GetBool("cache.scoped_feed_keys"),
		}
		return output.PrintRecord("Configuration", record)
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Write a setting to the user config file",
	Args:      cobra.ExactArgs(2),
	ValidArgs: settableKeys,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		known := false
		for _, k := range settableKeys {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			return clierrors.ValidationError("key", fmt.Sprintf("%q cannot be set here", key))
		}
		if key == "output.format" && !output.ValidateOutputFormat(value) {
			return clierrors.ValidationError("output.format", "must be one of text, json, table")
		}

		if err := config.SetString(key, value); err != nil {
			return err
		}
		output.PrintSuccess("%s = %s (%s)", key, value, config.GetConfigFilePath())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
