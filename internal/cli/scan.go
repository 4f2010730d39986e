package cli

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/codecity/pkg/metrics"
)

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	var (
		src    sourceFlags
		output string
	)

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Analyze every git repository in a directory",
		Long: `Analyze every git repository directly under a directory and save the
results. Repositories that fail to analyze are reported and skipped.`,
		Example: `  codecity scan ~/src
  codecity scan ~/src --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src.scan = args[0]
			opts := c.pipelineOptions()
			if _, err := src.options(&opts, nil); err != nil {
				return err
			}
			return c.analyzeAndSave(cmd.Context(), &src, opts, output, printRepoTable)
		},
	}

	cmd.Flags().BoolVar(&src.refresh, "refresh", false, "re-analyze even when a cached result exists")
	cmd.Flags().BoolVar(&src.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the results to a JSON file")

	return cmd
}

// printRepoTable lists repositories, largest first.
func printRepoTable(repos []metrics.Repository) {
	sorted := slices.Clone(repos)
	slices.SortStableFunc(sorted, func(a, b metrics.Repository) int {
		switch {
		case a.TotalLines > b.TotalLines:
			return -1
		case a.TotalLines < b.TotalLines:
			return 1
		}
		return 0
	})

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true).Foreground(colorGray)
			case col == 0:
				return s.Foreground(lipgloss.Color(sorted[row].Record().Color()))
			case col == 2 || col == 3:
				return s.Foreground(colorTeal).Align(lipgloss.Right)
			}
			return s
		}).
		Headers("", "REPOSITORY", "LINES", "AGE", "LANGUAGE", "ID")
	for _, r := range sorted {
		lang := "-"
		if l, ok := r.Record().Primary(); ok {
			lang = fmt.Sprintf("%s %.0f%%", l.Name, l.Percentage)
		}
		t.Row(iconSwatch, r.Name, metrics.FormatLines(r.TotalLines), metrics.FormatAge(r.AgeDays), lang, shortID(r.ID))
	}
	printNewline()
	fmt.Println(t.Render())
}

// shortID abbreviates a repository ID for tables; any unique prefix is
// accepted where an ID is expected.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

