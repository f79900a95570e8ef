package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/output"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=..."
var Version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(output.Writer(), "Threadline CLI v%s\n", Version)
	},
}
