package pipeline

import (
	"context"

	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/sink"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// Rendering
// =============================================================================

// Render produces every format in opts.Formats from a computed layout.
// The dot and tree formats draw the directory hierarchy of repos rather
// than the layout.
func Render(ctx context.Context, doc layout.Document, repos []metrics.Repository, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	return renderFormats(ctx, doc, repos, opts, opts.Formats)
}

func renderFormats(ctx context.Context, doc layout.Document, repos []metrics.Repository, opts Options, formats []string) (map[string][]byte, error) {
	in := sink.Input{Doc: doc, Repos: repos}
	out := make(map[string][]byte, len(formats))
	for _, name := range formats {
		f, err := sink.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		data, err := sink.Render(ctx, f, in, opts.SinkOptions())
		if err != nil {
			if errors.GetCode(err) != "" {
				return nil, err
			}
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "render %s", f)
		}
		out[name] = data
	}
	return out, nil
}

// usesRepositories reports whether format f is drawn from the repositories
// instead of the layout.
func usesRepositories(f string) bool {
	switch sink.Format(f) {
	case sink.FormatDOT, sink.FormatTree:
		return true
	default:
		return false
	}
}
