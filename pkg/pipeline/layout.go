package pipeline

import (
	"github.com/matzehuels/codecity/pkg/city/layout"
	"github.com/matzehuels/codecity/pkg/city/view"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// =============================================================================
// Layout Generation
// =============================================================================

// ComputeLayout lays out repos for the view in opts and wraps the result
// into a serializable document.
//
// The directories view needs a focus repository; when none is given and
// exactly one repository was analyzed, that repository is used.
func ComputeLayout(repos []metrics.Repository, opts Options) (layout.Document, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return layout.Document{}, err
	}
	v, _ := view.ParseView(opts.View)
	focus, err := ResolveFocus(repos, v, opts.Focus)
	if err != nil {
		return layout.Document{}, err
	}

	res := view.Compute(repos, v, focus, opts.Layout)
	if res.Empty() {
		return layout.Document{}, errors.New(errors.ErrCodeNoData, "nothing to show in the %s view", v)
	}
	opts.Logger.Debug("computed layout", "view", v, "buildings", len(res.Buildings), "blocks", len(res.Blocks))
	return res.Export(string(v), focus), nil
}

// ResolveFocus returns the ID of the repository shown by the directories
// view, matching focus against IDs and names. A single loaded repository
// needs no focus. Other views ignore the focus.
func ResolveFocus(repos []metrics.Repository, v view.View, focus string) (string, error) {
	if v != view.Directories {
		return "", nil
	}
	if focus == "" {
		if len(repos) != 1 {
			return "", errors.New(errors.ErrCodeInvalidInput, "the dirs view needs --focus when %d repositories are loaded", len(repos))
		}
		return repos[0].ID, nil
	}
	for _, r := range repos {
		if r.ID == focus || r.Name == focus {
			return r.ID, nil
		}
	}
	return "", errors.New(errors.ErrCodeRepoNotFound, "no repository %q to focus", focus)
}
