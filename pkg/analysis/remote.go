package analysis

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/matzehuels/codecity/pkg/cache"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// GitHubURL is the default clone host.
const GitHubURL = "https://github.com"

// DefaultCloneTimeout bounds one clone attempt.
const DefaultCloneTimeout = 5 * time.Minute

// CloneBackoff controls clone retries.
var CloneBackoff = cache.Backoff{Attempts: 3, Delay: 2 * time.Second}

// CloneURL returns the clone URL of owner/repo on the configured host.
func (a *Analyzer) CloneURL(owner, repo string) string {
	return a.baseURL + "/" + owner + "/" + repo + ".git"
}

// AnalyzeRemote clones owner/repo and analyzes it. The repository is named
// "owner/repo" and its path is the clone URL.
func (a *Analyzer) AnalyzeRemote(ctx context.Context, owner, repo string) (metrics.Repository, error) {
	if err := errors.ValidateRepoRef(owner, repo); err != nil {
		return metrics.Repository{}, err
	}
	url := a.CloneURL(owner, repo)
	logger := a.logger.With("url", url)

	var dir string
	defer func() {
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
	}()

	err := cache.RetryWithBackoff(ctx, CloneBackoff, func() error {
		if dir != "" {
			_ = os.RemoveAll(dir)
		}
		tmp, err := os.MkdirTemp("", "codecity-clone-*")
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "create clone directory")
		}
		dir = tmp

		logger.Info("cloning")
		return a.clone(ctx, dir, url)
	})
	if err != nil {
		return metrics.Repository{}, err
	}
	return a.analyze(ctx, dir, owner+"/"+repo, url)
}

func (a *Analyzer) clone(ctx context.Context, dir, url string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cloneTimeout)
	defer cancel()

	_, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:          url,
		SingleBranch: true,
		Tags:         gogit.NoTags,
	})
	return classifyCloneError(ctx, url, err)
}

// classifyCloneError maps go-git failures to error codes. Only network
// failures are retried.
func classifyCloneError(ctx context.Context, url string, err error) error {
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, transport.ErrRepositoryNotFound),
		stderrors.Is(err, transport.ErrAuthenticationRequired),
		stderrors.Is(err, transport.ErrAuthorizationFailed):
		return errors.Wrap(errors.ErrCodeRepoNotFound, err, "repository not found: %s", url)
	case stderrors.Is(err, transport.ErrEmptyRemoteRepository):
		return errors.Wrap(errors.ErrCodeNoCommits, err, "remote repository is empty: %s", url)
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		return cache.Retryable(errors.Wrap(errors.ErrCodeTimeout, err, "clone %s timed out", url))
	case ctx.Err() != nil:
		return errors.Wrap(errors.ErrCodeTimeout, err, "clone %s cancelled", url)
	default:
		return cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "clone %s", url))
	}
}
