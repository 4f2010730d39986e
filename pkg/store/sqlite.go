package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS repositories (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	path        TEXT NOT NULL,
	total_lines INTEGER NOT NULL,
	analyzed_at TIMESTAMP,
	data        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_repositories_name ON repositories(name);
`

// SQLite stores repositories in an embedded database. The full analysis
// is kept as JSON next to a few queryable columns.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path. The path
// ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "sqlite store needs a path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create store directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s", path)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "enable WAL")
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create schema")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Put(ctx context.Context, repo metrics.Repository) error {
	if err := validate(repo); err != nil {
		return err
	}
	data, err := json.Marshal(repo)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode repository")
	}
	var analyzed any
	if !repo.AnalyzedAt.IsZero() {
		analyzed = repo.AnalyzedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO repositories (id, name, path, total_lines, analyzed_at, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			path = excluded.path,
			total_lines = excluded.total_lines,
			analyzed_at = excluded.analyzed_at,
			data = excluded.data
	`, repo.ID, repo.Name, repo.Path, int64(repo.TotalLines), analyzed, data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "store %s", repo.ID)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (metrics.Repository, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM repositories WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return metrics.Repository{}, notFound(id)
	}
	if err != nil {
		return metrics.Repository{}, errors.Wrap(errors.ErrCodeInternal, err, "load %s", id)
	}
	return decodeRepository(data)
}

func (s *SQLite) List(ctx context.Context) ([]metrics.Repository, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM repositories ORDER BY name, id`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list repositories")
	}
	defer rows.Close()

	var out []metrics.Repository
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "scan row")
		}
		r, err := decodeRepository(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "list repositories")
	}
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM repositories WHERE id = ?`, id); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "delete %s", id)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func decodeRepository(data []byte) (metrics.Repository, error) {
	var r metrics.Repository
	if err := json.Unmarshal(data, &r); err != nil {
		return metrics.Repository{}, errors.Wrap(errors.ErrCodeInternal, err, "decode repository")
	}
	return r, nil
}
