package store

import (
	"context"
	"sync"

	"github.com/matzehuels/codecity/pkg/metrics"
)

// Memory is an in-process Store.
type Memory struct {
	mu    sync.RWMutex
	repos map[string]metrics.Repository
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{repos: make(map[string]metrics.Repository)}
}

func (m *Memory) Put(_ context.Context, repo metrics.Repository) error {
	if err := validate(repo); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos[repo.ID] = repo
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (metrics.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.repos[id]
	if !ok {
		return metrics.Repository{}, notFound(id)
	}
	return r, nil
}

func (m *Memory) List(context.Context) ([]metrics.Repository, error) {
	m.mu.RLock()
	out := make([]metrics.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sortRepos(out)
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.repos, id)
	return nil
}

func (m *Memory) Close() error { return nil }
