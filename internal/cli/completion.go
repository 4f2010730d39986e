package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/city/sink"
	"github.com/matzehuels/codecity/pkg/city/view"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for your shell.

Besides commands and flags, the scripts complete view names, render
formats and the names of analyzed repositories.

  bash        source <(codecity completion bash)
  zsh         codecity completion zsh > "${fpath[1]}/_codecity"
  fish        codecity completion fish > ~/.config/fish/completions/codecity.fish
  powershell  codecity completion powershell | Out-String | Invoke-Expression`,
		Annotations:           map[string]string{annotationNoConfig: "true"},
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

	return cmd
}

// =============================================================================
// Dynamic Completions
// =============================================================================

// registerCompletions attaches value completion to the --view, --focus and
// --format flags of every command that has them.
func (c *CLI) registerCompletions(root *cobra.Command) {
	var walk func(cmd *cobra.Command)
	walk = func(cmd *cobra.Command) {
		if cmd.Flags().Lookup("view") != nil {
			_ = cmd.RegisterFlagCompletionFunc("view", completeViews)
		}
		if cmd.Flags().Lookup("focus") != nil {
			_ = cmd.RegisterFlagCompletionFunc("focus", c.completeRepos)
		}
		if cmd.Flags().Lookup("format") != nil {
			_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
		}
		for _, sub := range cmd.Commands() {
			walk(sub)
		}
	}
	walk(root)
}

var viewDescriptions = map[view.View]string{
	view.Repositories: "one building per repository",
	view.Directories:  "top-level directories of one repository",
	view.City:         "blocks of directories per repository",
}

func completeViews(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	out := make([]string, 0, len(view.Views))
	for _, v := range view.Views {
		out = append(out, string(v)+"\t"+viewDescriptions[v])
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeFormats completes the last entry of a comma-separated list and
// leaves out formats already given.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done := toComplete[:max(strings.LastIndex(toComplete, ","), 0)]
	given := make(map[string]bool)
	for _, f := range strings.Split(done, ",") {
		given[strings.TrimSpace(f)] = true
	}
	prefix := ""
	if done != "" {
		prefix = done + ","
	}

	var out []string
	for _, f := range sink.Formats {
		if !given[string(f)] {
			out = append(out, prefix+string(f))
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeRepos completes analyzed repository names from the store.
func (c *CLI) completeRepos(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	// Completion skips the persistent pre-run, so load the config here.
	if err := c.loadConfig(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	st, err := c.openStore(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer st.Close()
	repos, err := st.List(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	out := make([]string, 0, len(repos))
	for _, r := range repos {
		out = append(out, r.Name+"\t"+shortID(r.ID))
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
