package analysis

import (
	"context"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// history holds the commits reachable from HEAD, oldest first.
type history struct {
	commits []*object.Commit
}

func loadHistory(ctx context.Context, g *gogit.Repository) (*history, error) {
	ref, err := g.Head()
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return nil, errors.New(errors.ErrCodeNoCommits, "repository has no commits")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "resolve HEAD")
	}

	iter, err := g.Log(&gogit.LogOptions{From: ref.Hash(), Order: gogit.LogOrderCommitterTime})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read log")
	}
	defer iter.Close()

	var commits []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		commits = append(commits, c)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "analysis cancelled")
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "walk log")
	}
	if len(commits) == 0 {
		return nil, errors.New(errors.ErrCodeNoCommits, "repository has no commits")
	}

	// The log is newest first.
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return &history{commits: commits}, nil
}

func (h *history) len() int { return len(h.commits) }

// oldest returns the commit time of the first commit.
func (h *history) oldest() time.Time {
	oldest := h.commits[0].Committer.When
	for _, c := range h.commits[1:] {
		if c.Committer.When.Before(oldest) {
			oldest = c.Committer.When
		}
	}
	return oldest
}

// firstSeen returns, for every path, the time of the oldest commit whose
// tree contains it. Paths never committed are absent from the result.
func (h *history) firstSeen(paths []string) map[string]time.Time {
	seen := make(map[string]time.Time, len(paths))
	pending := make(map[string]bool, len(paths))
	for _, p := range paths {
		pending[p] = true
	}

	for _, c := range h.commits {
		if len(pending) == 0 {
			break
		}
		tree, err := c.Tree()
		if err != nil {
			continue
		}
		for p := range pending {
			if _, err := tree.FindEntry(p); err != nil {
				continue
			}
			if t, ok := seen[p]; !ok || c.Committer.When.Before(t) {
				seen[p] = c.Committer.When
			}
			delete(pending, p)
		}
	}
	return seen
}

// dateDirectories fills AgeDays across the tree. The root node takes the
// repository age.
func dateDirectories(dirs []metrics.Directory, h *history, now time.Time) {
	var paths []string
	var collect func([]metrics.Directory)
	collect = func(ds []metrics.Directory) {
		for _, d := range ds {
			if d.Path != "" {
				paths = append(paths, d.Path)
			}
			collect(d.Children)
		}
	}
	collect(dirs)

	seen := h.firstSeen(paths)
	repoAge := ageDays(h.oldest(), now)

	var fill func([]metrics.Directory)
	fill = func(ds []metrics.Directory) {
		for i := range ds {
			switch t, ok := seen[ds[i].Path]; {
			case ds[i].Path == "":
				ds[i].AgeDays = repoAge
			case ok:
				ds[i].AgeDays = ageDays(t, now)
			}
			fill(ds[i].Children)
		}
	}
	fill(dirs)
}

// ageDays returns whole days elapsed since t, never negative.
func ageDays(t, now time.Time) uint64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return uint64(d / (24 * time.Hour))
}
