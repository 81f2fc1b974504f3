package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvs-project/tidy/internal/ledger"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Print a shell completion script",
	Long: `Print a completion script for tidy to stdout.

Besides commands and flags, the script completes change ledger names for
"tidy revert" and "tidy logs show", newest first, read from the log
directory of the current state directory.

Load it once per session:
  source <(tidy completion bash)
  source <(tidy completion zsh)
  tidy completion fish | source
  tidy completion powershell | Out-String | Invoke-Expression

Or install it permanently, for example:
  tidy completion bash > /etc/bash_completion.d/tidy
  tidy completion zsh > "${fpath[1]}/_tidy"
  tidy completion fish > ~/.config/fish/completions/tidy.fish`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		shell := args[0]

		var err error
		switch shell {
		case "bash":
			err = cmd.Root().GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			err = cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			err = cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			err = cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			err = fmt.Errorf("unsupported shell type: %s", shell)
		}

		if err != nil {
			fmtErr("failed to generate completion for %s: %v", shell, err)
			os.Exit(1)
		}
	},
}

// completeArtifacts offers the ledger names in the log directory, newest
// first. Only the first positional argument is completed.
func completeArtifacts(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	infos, err := ledger.List(cfg.ResolveLogDir(resolveStateDir()))
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for i := len(infos) - 1; i >= 0; i-- {
		if strings.HasPrefix(infos[i].Name, toComplete) {
			names = append(names, infos[i].Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	revertCmd.ValidArgsFunction = completeArtifacts
	logsShowCmd.ValidArgsFunction = completeArtifacts
	rootCmd.AddCommand(completionCmd)
}
