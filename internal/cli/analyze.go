package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/metrics"
	"github.com/matzehuels/codecity/pkg/pipeline"
	"github.com/matzehuels/codecity/pkg/store"
)

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var (
		src    sourceFlags
		output string
		top    int
	)

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Measure a repository and save the result",
		Long: `Measure a git repository: lines of code per language for the whole
repository and each top-level directory, and its age from the commit history.

Pass a local path, or --github owner/repo to clone and analyze a public
GitHub repository. Results are saved for the layout, render, view and serve
commands and cached by commit, so analyzing an unchanged repository again
is instant.`,
		Example: `  codecity analyze .
  codecity analyze --github charmbracelet/bubbletea
  codecity analyze ~/src/app -o app.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && src.github == "" {
				args = []string{"."}
			}
			return c.runAnalyze(cmd.Context(), &src, args, output, top)
		},
	}

	cmd.Flags().StringVar(&src.github, "github", "", "analyze a GitHub repository (owner/repo)")
	cmd.Flags().BoolVar(&src.refresh, "refresh", false, "re-analyze even when a cached result exists")
	cmd.Flags().BoolVar(&src.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the result to a JSON file")
	cmd.Flags().IntVar(&top, "top", 8, "languages to list")

	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, src *sourceFlags, args []string, output string, top int) error {
	opts := c.pipelineOptions()
	if _, err := src.options(&opts, args); err != nil {
		return err
	}
	return c.analyzeAndSave(ctx, src, opts, output, func(repos []metrics.Repository) {
		for _, r := range repos {
			printNewline()
			printKeyValue("Repository", StyleTitle.Render(r.Name))
			printKeyValue("Path", r.Path)
			printKeyValue("ID", StyleDim.Render(r.ID))
			printKeyValue("Lines", metrics.FormatLinesExact(r.TotalLines))
			printKeyValue("Age", metrics.FormatAge(r.AgeDays))
			printKeyValue("Directories", fmt.Sprint(len(r.Directories)))
			if len(r.Languages) > 0 {
				printLanguages(r.Languages, top)
			}
		}
	})
}

// analyzeAndSave runs the analysis stage, saves the repositories and
// reports them with report.
func (c *CLI) analyzeAndSave(ctx context.Context, src *sourceFlags, opts pipeline.Options, output string, report func([]metrics.Repository)) error {
	runner, err := c.newRunner(ctx, src.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Analyzing "+describeSource(opts)+"...")
	spinner.Start()

	repos, cacheHit, err := runner.AnalyzeWithCacheInfo(ctx, opts)
	if err != nil {
		spinner.StopWithError("Analysis failed")
		return err
	}
	spinner.Stop()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := store.PutAll(ctx, st, repos); err != nil {
		return err
	}
	prog.done("analysis finished", "repositories", len(repos), "cached", cacheHit)

	printSuccess("Analysis complete")
	printStats(repos, cacheHit)
	if output != "" {
		if err := writeRepositoriesFile(repos, output); err != nil {
			return err
		}
		printFile(output)
	}

	report(repos)

	printNewline()
	printNextStep("Explore", appName+" view")
	return nil
}

func describeSource(opts pipeline.Options) string {
	switch opts.Source() {
	case pipeline.SourceGitHub:
		return opts.Owner + "/" + opts.Repo
	case pipeline.SourceScan:
		return opts.ScanDir
	default:
		return opts.Path
	}
}
