package cli

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// Palette
// =============================================================================

// ANSI 256 colors. Language swatches come from metrics.LanguageColor instead.
var (
	colorTeal  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorAmber = lipgloss.Color("220")
	colorRed   = lipgloss.Color("167")
	colorSky   = lipgloss.Color("75")
	colorWhite = lipgloss.Color("255")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorTeal)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorTeal)
	StyleLink      = lipgloss.NewStyle().Foreground(colorSky).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorAmber)
)

var (
	styleIconSuccess = StyleSuccess
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = StyleWarning
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = StyleHighlight

	styleCached   = StyleSuccess
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorSky)
	styleKey      = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconSwatch  = "■"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Lines
// =============================================================================

// printStatus writes one status line: a colored icon, then msg.
func printStatus(icon string, iconStyle lipgloss.Style, msg string) {
	fmt.Println(iconStyle.Render(icon) + " " + msg)
}

func printSuccess(format string, args ...any) {
	printStatus(iconSuccess, styleIconSuccess, fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	printStatus(iconError, styleIconError, fmt.Sprintf(format, args...))
}

// printWarning colors the whole line, not just the icon.
func printWarning(format string, args ...any) {
	printStatus(iconWarning, styleIconWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printStatus(iconInfo, styleIconInfo, fmt.Sprintf(format, args...))
}

// printDetail prints a dimmed line indented under the previous status.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile lists a written artifact.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints repository statistics on a single line.
func printStats(repos []metrics.Repository, cached bool) {
	var lines uint64
	for _, r := range repos {
		lines += r.TotalLines
	}
	parts := []string{
		fmt.Sprintf("%d %s", len(repos), plural(len(repos), "repository", "repositories")),
		metrics.FormatLinesExact(lines) + " lines",
	}

	if cached {
		parts = append(parts, styleCached.Render(iconCached))
	} else {
		parts = append(parts, styleComputed.Render(iconFresh))
	}

	for i, p := range parts[:len(parts)-1] {
		parts[i] = StyleDim.Render(p)
	}
	fmt.Println("  " + strings.Join(parts, StyleDim.Render(" · ")))
}

// printLanguages prints a language breakdown table with color swatches.
func printLanguages(langs []metrics.Language, limit int) {
	if limit > 0 && len(langs) > limit {
		langs = langs[:limit]
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingRight(2)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true).Foreground(colorGray)
			case col == 0:
				return s.Foreground(lipgloss.Color(metrics.LanguageColor(langs[row].Name)))
			case col > 1:
				return s.Foreground(colorTeal).Align(lipgloss.Right)
			}
			return s
		}).
		Headers("", "LANGUAGE", "LINES", "SHARE")
	for _, l := range langs {
		t.Row(iconSwatch, l.Name, humanize.Comma(int64(l.Lines)), fmt.Sprintf("%.1f%%", l.Percentage))
	}
	fmt.Println(t.Render())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() { fmt.Println() }

// =============================================================================
// Errors
// =============================================================================

// ErrorLine formats a command error for the terminal, with its code when
// the error carries one.
func ErrorLine(err error) string {
	line := styleIconError.Render(iconError) + " " + errors.UserMessage(err)
	var e *errors.Error
	if stderrors.As(err, &e) && e.Cause != nil {
		line += ": " + e.Cause.Error()
	}
	if code := errors.GetCode(err); code != "" {
		line += " " + StyleDim.Render("("+string(code)+")")
	}
	return line
}

// ExitCode maps an error to a process exit code: 2 for bad input, 1 for
// everything else.
func ExitCode(err error) int {
	if errors.HTTPStatus(err) == http.StatusBadRequest {
		return 2
	}
	return 1
}
