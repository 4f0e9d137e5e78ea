package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for uwealth.

Bash:
  $ source <(uwealth completion bash)

Zsh:
  # Completion must be enabled once with "autoload -U compinit; compinit".
  $ uwealth completion zsh > "${fpath[1]}/_uwealth"

Fish:
  $ uwealth completion fish > ~/.config/fish/completions/uwealth.fish

PowerShell:
  PS> uwealth completion powershell | Out-String | Invoke-Expression`,
	Example: `  uwealth completion bash > /etc/bash_completion.d/uwealth
  uwealth completion zsh > "${fpath[1]}/_uwealth"`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(w, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(w)
		case "fish":
			return cmd.Root().GenFishCompletion(w, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(w)
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	completionCmd.GroupID = groupConfig
	rootCmd.AddCommand(completionCmd)
}
