// Package store persists analyzed repositories.
//
// Three backends implement [Store]:
//
//   - [Memory]: process-local, used by tests and ephemeral servers
//   - [SQLite]: embedded database file, the CLI default
//   - [Mongo]:  shared document store for multi-instance deployments
//
// Every backend upserts by repository ID: putting a repository whose ID is
// already stored replaces it. List returns repositories ordered by name,
// then ID.
package store

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// Store holds analyzed repositories.
type Store interface {
	// Put adds the repository or replaces the one with the same ID.
	Put(ctx context.Context, repo metrics.Repository) error
	// Get returns the repository or an ErrCodeRepoNotFound error.
	Get(ctx context.Context, id string) (metrics.Repository, error)
	List(ctx context.Context) ([]metrics.Repository, error)
	// Delete removes the repository; deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Backend  string `mapstructure:"backend" toml:"backend"`
	Path     string `mapstructure:"path" toml:"path"`         // sqlite database file
	URI      string `mapstructure:"uri" toml:"uri"`           // mongo connection string
	Database string `mapstructure:"database" toml:"database"` // mongo database
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case BackendMongo:
		return OpenMongo(ctx, cfg.URI, cfg.Database)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", cfg.Backend)
	}
}

// Tree returns the directory tree of a stored repository.
func Tree(ctx context.Context, s Store, id string) ([]metrics.Directory, error) {
	repo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return repo.Directories, nil
}

// PutAll stores several repositories, stopping at the first failure.
func PutAll(ctx context.Context, s Store, repos []metrics.Repository) error {
	for _, r := range repos {
		if err := s.Put(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeRepoNotFound, "Repository not found: %s", id)
}

func validate(repo metrics.Repository) error {
	if repo.ID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "repository has no ID")
	}
	return nil
}

func sortRepos(repos []metrics.Repository) {
	slices.SortFunc(repos, func(a, b metrics.Repository) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
