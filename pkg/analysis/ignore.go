package analysis

import (
	"path"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/matzehuels/codecity/pkg/errors"
)

type ignorer struct {
	patterns []string
	globs    []glob.Glob
}

func newIgnorer(patterns []string) (*ignorer, error) {
	ign := &ignorer{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid ignore pattern %q", p)
		}
		ign.patterns = append(ign.patterns, p)
		ign.globs = append(ign.globs, g)
	}
	return ign, nil
}

// match reports whether rel (slash-separated, relative to the root) is
// skipped. Directory patterns also match with a trailing slash, so
// "docs/" ignores the docs directory only.
func (ign *ignorer) match(rel string, dir bool) bool {
	name := path.Base(rel)
	if strings.HasPrefix(name, ".") || slices.Contains(IgnoredNames, name) {
		return true
	}
	for _, g := range ign.globs {
		if g.Match(rel) || (dir && g.Match(rel+"/")) {
			return true
		}
	}
	return false
}

// Patterns returns the configured extra patterns.
func (a *Analyzer) Patterns() []string { return slices.Clone(a.ignore.patterns) }
