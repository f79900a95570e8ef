package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zfogg/threadline/pkg/output"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for bash, zsh, fish, or powershell.

To load completions in your shell session, run:

Bash:
  source <(threadline completion bash)

Zsh:
  source <(threadline completion zsh)

Fish:
  threadline completion fish | source

To load completions for every new session, execute once:

Bash:
  threadline completion bash > /etc/bash_completion.d/threadline

Zsh:
  threadline completion zsh > /usr/local/share/zsh/site-functions/_threadline
`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := output.Writer()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(w)
		case "zsh":
			return rootCmd.GenZshCompletion(w)
		case "fish":
			return rootCmd.GenFishCompletion(w, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(w)
		}
		return fmt.Errorf("unknown shell: %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
