package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/store"
)

// reposCommand creates the repository store management command.
func (c *CLI) reposCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repo"},
		Short:   "List and manage analyzed repositories",
	}

	cmd.AddCommand(c.reposListCommand())
	cmd.AddCommand(c.reposShowCommand())
	cmd.AddCommand(c.reposTreeCommand())
	cmd.AddCommand(c.reposRemoveCommand())

	return cmd
}

func (c *CLI) reposListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List analyzed repositories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				repos, err := st.List(ctx)
				if err != nil {
					return err
				}
				if len(repos) == 0 {
					printInfo("No repositories analyzed yet")
					printNextStep("Analyze one", appName+" analyze <path>")
					return nil
				}
				printRepoTable(repos)
				printStats(repos, false)
				return nil
			})
		},
	}
}

func (c *CLI) reposShowCommand() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:               "show <id|name>",
		Short:             "Show the measurements of a repository",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeRepos,
		RunE:              func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				r, err := resolveRepo(ctx, st, args[0])
				if err != nil {
					return err
				}
				printKeyValue("Repository", StyleTitle.Render(r.Name))
				printKeyValue("Path", r.Path)
				printKeyValue("ID", StyleDim.Render(r.ID))
				printKeyValue("Lines", metrics.FormatLinesExact(r.TotalLines))
				printKeyValue("Age", metrics.FormatAge(r.AgeDays))
				if !r.AnalyzedAt.IsZero() {
					printKeyValue("Analyzed", r.AnalyzedAt.Local().Format("2006-01-02 15:04"))
				}
				if len(r.Languages) > 0 {
					printLanguages(r.Languages, top)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "languages to list (0 for all)")
	return cmd
}

func (c *CLI) reposTreeCommand() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:               "tree <id|name>",
		Short:             "Print the directory tree of a repository",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: c.completeRepos,
		RunE:              func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				r, err := resolveRepo(ctx, st, args[0])
				if err != nil {
					return err
				}
				fmt.Println(dirTree(r, depth))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 2, "directory levels to print (0 for all)")
	return cmd
}

func (c *CLI) reposRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "rm <id|name>...",
		Aliases:           []string{"remove"},
		Short:             "Forget analyzed repositories",
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeRepos,
		RunE:              func(cmd *cobra.Command, args []string) error {
			return c.withStore(cmd.Context(), func(ctx context.Context, st store.Store) error {
				for _, ref := range args {
					r, err := resolveRepo(ctx, st, ref)
					if err != nil {
						return err
					}
					if err := st.Delete(ctx, r.ID); err != nil {
						return err
					}
					printSuccess("Removed %s", r.Name)
				}
				return nil
			})
		},
	}
}

func (c *CLI) withStore(ctx context.Context, fn func(context.Context, store.Store) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

// resolveRepo finds a stored repository by exact ID, unique ID prefix or
// name.
func resolveRepo(ctx context.Context, st store.Store, ref string) (metrics.Repository, error) {
	if r, err := st.Get(ctx, ref); err == nil {
		return r, nil
	} else if !errors.Is(err, errors.ErrCodeRepoNotFound) {
		return metrics.Repository{}, err
	}

	repos, err := st.List(ctx)
	if err != nil {
		return metrics.Repository{}, err
	}
	var matches []metrics.Repository
	for _, r := range repos {
		if r.Name == ref || strings.HasPrefix(r.ID, ref) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return metrics.Repository{}, errors.New(errors.ErrCodeRepoNotFound, "no analyzed repository matches %q", ref)
	case 1:
		return matches[0], nil
	}
	names := make([]string, len(matches))
	for i, r := range matches {
		names[i] = r.Name + " (" + shortID(r.ID) + ")"
	}
	return metrics.Repository{}, errors.New(errors.ErrCodeInvalidInput, "%q is ambiguous: %s", ref, strings.Join(names, ", "))
}

// dirTree renders the directory tree of r down to depth levels.
func dirTree(r metrics.Repository, depth int) string {
	root := tree.Root(StyleTitle.Render(r.Name) + " " + StyleDim.Render(metrics.FormatLines(r.TotalLines))).
		EnumeratorStyle(StyleDim).
		RootStyle(lipgloss.NewStyle())
	addDirs(root, r.Directories, 1, depth)
	return root.String()
}

func addDirs(t *tree.Tree, dirs []metrics.Directory, level, depth int) {
	for _, d := range dirs {
		label := lipgloss.NewStyle().Foreground(lipgloss.Color(metrics.LanguageColor(primaryLanguage(d.Languages)))).Render(iconSwatch) +
			" " + d.Name + " " + StyleDim.Render(metrics.FormatLines(d.Lines))
		if len(d.Children) == 0 || (depth > 0 && level >= depth) {
			t.Child(label)
			continue
		}
		sub := tree.Root(label)
		addDirs(sub, d.Children, level+1, depth)
		t.Child(sub)
	}
}

func primaryLanguage(langs []metrics.Language) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0].Name
}
