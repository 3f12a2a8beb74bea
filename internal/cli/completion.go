package cli

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flametower/pkg/flame"
	fio "github.com/matzehuels/flametower/pkg/io"
	"github.com/matzehuels/flametower/pkg/render"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for flametower.

Besides commands and flags, the scripts complete output formats
(--format svg,png), color modes and stdin document formats.

  $ source <(flametower completion bash)
  $ flametower completion zsh > "${fpath[1]}/_flametower"
  $ flametower completion fish | source
  PS> flametower completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// registerRenderCompletions completes the values of the flags added by
// renderFlags.register.
func registerRenderCompletions(cmd *cobra.Command) {
	modes := []string{string(flame.ColorModePeaks), string(flame.ColorModeWidth)}
	inputs := make([]string, len(fio.Formats))
	for i, f := range fio.Formats {
		inputs[i] = string(f)
	}
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	_ = cmd.RegisterFlagCompletionFunc("color-mode", cobra.FixedCompletions(modes, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("input-format", cobra.FixedCompletions(inputs, cobra.ShellCompDirectiveNoFileComp))
}

// completeFormats completes the last entry of a comma-separated format list,
// leaving out formats that are already listed.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix = toComplete[:i+1]
	}
	chosen := parseFormats(prefix)
	var out []string
	for _, f := range render.Formats {
		if !slices.Contains(chosen, string(f)) {
			out = append(out, prefix+string(f))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}
