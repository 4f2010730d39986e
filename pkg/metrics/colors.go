package metrics

import (
	"slices"
	"strings"
)

// DefaultColor is used for records without a known language.
const DefaultColor = "#8B8B8B"

var languageColors = map[string]string{
	"rust":       "#DEA584",
	"javascript": "#F7DF1E",
	"js":         "#F7DF1E",
	"typescript": "#3178C6",
	"ts":         "#3178C6",
	"python":     "#3776AB",
	"py":         "#3776AB",
	"go":         "#00ADD8",
	"java":       "#B07219",
	"c++":        "#F34B7D",
	"cpp":        "#F34B7D",
	"c":          "#555555",
	"ruby":       "#CC342D",
	"rb":         "#CC342D",
	"html":       "#E34C26",
	"css":        "#563D7C",
	"scss":       "#C6538C",
	"sass":       "#C6538C",
	"json":       "#292929",
	"yaml":       "#CB171E",
	"yml":        "#CB171E",
	"markdown":   "#083FA1",
	"md":         "#083FA1",
	"shell":      "#89E051",
	"sh":         "#89E051",
	"bash":       "#89E051",
	"php":        "#4F5D95",
	"swift":      "#F05138",
	"kotlin":     "#A97BFF",
	"scala":      "#DC322F",
	"haskell":    "#5E5086",
	"hs":         "#5E5086",
	"elixir":     "#6E4A7E",
	"ex":         "#6E4A7E",
	"clojure":    "#DB5855",
	"clj":        "#DB5855",
	"lua":        "#000080",
	"r":          "#198CE7",
	"dart":       "#00B4AB",
	"vue":        "#41B883",
	"svelte":     "#FF3E00",
	"sql":        "#E38C00",
	"graphql":    "#E10098",
	"gql":        "#E10098",
	"toml":       "#9C4221",
	"xml":        "#0060AC",
}

// LanguageColor returns the display color of a language (case-insensitive).
func LanguageColor(language string) string {
	if c, ok := languageColors[strings.ToLower(language)]; ok {
		return c
	}
	return DefaultColor
}

// Legend returns the sorted set of languages used across the repositories.
func Legend(repos []Repository) []Language {
	seen := make(map[string]bool)
	var out []Language
	for _, r := range repos {
		for _, l := range r.Languages {
			if seen[l.Name] {
				continue
			}
			seen[l.Name] = true
			c := l.Color
			if c == "" {
				c = LanguageColor(l.Name)
			}
			out = append(out, Language{Name: l.Name, Color: c})
		}
	}
	slices.SortFunc(out, func(a, b Language) int { return strings.Compare(a.Name, b.Name) })
	return out
}
