package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/pipeline"
)

// layoutFlags are shared by the layout, render and view commands.
type layoutFlags struct {
	view  string
	focus string
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.view, "view", string(view.Repositories), "view: repos, dirs or city")
	cmd.Flags().StringVar(&f.focus, "focus", "", "repository ID or name for the dirs view")
}

func (f *layoutFlags) apply(opts *pipeline.Options) {
	opts.View = f.view
	opts.Focus = f.focus
}

// layoutCommand creates the layout command for computing city layouts.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		src    sourceFlags
		lf     layoutFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "layout [path]",
		Short: "Compute a city layout",
		Long: `Compute the layout of one view and write it as JSON.

Views:
  repos  one building per repository on a grid
  dirs   one building per top-level directory of the --focus repository
  city   one block per repository holding its largest directories

Without a path or --github/--scan/--input the saved repositories are used.
The layout JSON can be rendered later with 'render --layout'.`,
		Example: `  codecity layout --view city
  codecity layout . --view dirs -o app.layout.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), &src, &lf, args, output)
		},
	}

	src.register(cmd)
	lf.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <view>.layout.json)")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, src *sourceFlags, lf *layoutFlags, args []string, output string) error {
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

	repos, _, err := c.loadRepositories(ctx, runner, st, src, args)
	if err != nil {
		return err
	}

	opts := c.pipelineOptions()
	lf.apply(&opts)

	spinner := newSpinner(ctx, fmt.Sprintf("Computing %s layout...", opts.View))
	spinner.Start()

	doc, cacheHit, err := runner.LayoutWithCacheInfo(ctx, repos, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	if output == "" {
		output = doc.View + ".layout.json"
	}
	if err := layout.WriteDocumentFile(doc, output); err != nil {
		return fmt.Errorf("write output %s: %w", output, err)
	}

	printSuccess("Layout complete")
	printFile(output)
	printLayoutStats(doc, cacheHit)
	printNewline()
	printNextStep("Render", appName+" render --layout "+output)

	return nil
}

// printLayoutStats prints building and block counts on one line.
func printLayoutStats(doc layout.Document, cached bool) {
	status := StyleDim.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}
	line := fmt.Sprintf("%d buildings", len(doc.Buildings))
	if len(doc.Blocks) > 0 {
		line += fmt.Sprintf(" · %d blocks", len(doc.Blocks))
	}
	line += fmt.Sprintf(" · %.0f×%.0f", doc.Width, doc.Depth)
	fmt.Println("  " + StyleDim.Render(line+" · ") + status)
}
