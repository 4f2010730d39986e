// Package metrics defines the measurements a code city is built from.
//
// A [Repository] is produced by the analyzer (see pkg/analysis) and carries
// its first-level [Directory] tree. Layout code never works on those wire
// types directly: both are flattened into a [Record], the common shape that
// the dimension mapper, the grid and the block packer consume.
//
// The JSON field names match the analysis API so that results stored by one
// component can be loaded by any other.
package metrics

import (
	"cmp"
	"slices"
	"time"
)

// Language is one entry of a language breakdown.
type Language struct {
	Name       string  `json:"language" bson:"language"`
	Lines      uint64  `json:"lines" bson:"lines"`
	Percentage float64 `json:"percentage" bson:"percentage"`
	Color      string  `json:"color,omitempty" bson:"color,omitempty"`
}

// Repository is the analysis result for a single repository.
type Repository struct {
	ID          string      `json:"id" bson:"_id"`
	Name        string      `json:"name" bson:"name"`
	Path        string      `json:"path" bson:"path"`
	AgeDays     uint64      `json:"age_days" bson:"age_days"`
	TotalLines  uint64      `json:"total_lines" bson:"total_lines"`
	Languages   []Language  `json:"languages" bson:"languages"`
	Directories []Directory `json:"directories" bson:"directories"`
	AnalyzedAt  time.Time   `json:"analyzed_at,omitempty" bson:"analyzed_at,omitempty"`
}

// Directory is a node of a repository's directory tree.
// Lines include every file below the directory.
type Directory struct {
	Name      string      `json:"name" bson:"name"`
	Path      string      `json:"path" bson:"path"`
	AgeDays   uint64      `json:"age_days" bson:"age_days"`
	Lines     uint64      `json:"lines" bson:"lines"`
	Languages []Language  `json:"languages" bson:"languages"`
	Children  []Directory `json:"children,omitempty" bson:"children,omitempty"`
}

// Record is the flattened view of a repository or directory used for layout
// and picking. ID is stable across recomputes and is the picking key.
type Record struct {
	ID         string     `json:"id" bson:"id"`
	Name       string     `json:"name" bson:"name"`
	Path       string     `json:"path,omitempty" bson:"path,omitempty"`
	OwnerID    string     `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	OwnerName  string     `json:"owner_name,omitempty" bson:"owner_name,omitempty"`
	TotalLines uint64     `json:"total_lines" bson:"total_lines"`
	AgeDays    uint64     `json:"age_days" bson:"age_days"`
	Languages  []Language `json:"languages,omitempty" bson:"languages,omitempty"`
}

// Record flattens the repository.
func (r Repository) Record() Record {
	return Record{
		ID:         r.ID,
		Name:       r.Name,
		Path:       r.Path,
		TotalLines: r.TotalLines,
		AgeDays:    r.AgeDays,
		Languages:  r.Languages,
	}
}

// DirectoryRecords flattens the first-level directories of the repository.
func (r Repository) DirectoryRecords() []Record {
	out := make([]Record, 0, len(r.Directories))
	for _, d := range r.Directories {
		out = append(out, d.Record(r))
	}
	return out
}

// Record flattens the directory, tagging it with its owning repository.
func (d Directory) Record(owner Repository) Record {
	return Record{
		ID:         DirectoryID(owner.ID, d.Path),
		Name:       d.Name,
		Path:       d.Path,
		OwnerID:    owner.ID,
		OwnerName:  owner.Name,
		TotalLines: d.Lines,
		AgeDays:    d.AgeDays,
		Languages:  d.Languages,
	}
}

// DirectoryID builds the stable record ID of a directory.
func DirectoryID(repoID, path string) string {
	return repoID + ":" + path
}

// Primary returns the dominant language, if any.
func (r Record) Primary() (Language, bool) {
	if len(r.Languages) == 0 {
		return Language{}, false
	}
	return r.Languages[0], true
}

// Color returns the color of the primary language.
func (r Record) Color() string {
	lang, ok := r.Primary()
	if !ok {
		return DefaultColor
	}
	if lang.Color != "" {
		return lang.Color
	}
	return LanguageColor(lang.Name)
}

// Find returns the repository with the given ID.
func Find(repos []Repository, id string) (Repository, bool) {
	for _, r := range repos {
		if r.ID == id {
			return r, true
		}
	}
	return Repository{}, false
}

// Upsert replaces the repository with the same ID or appends it.
func Upsert(repos []Repository, repo Repository) []Repository {
	for i, r := range repos {
		if r.ID == repo.ID {
			out := slices.Clone(repos)
			out[i] = repo
			return out
		}
	}
	return append(slices.Clone(repos), repo)
}

// Breakdown converts per-language line counts into a breakdown sorted by
// lines, largest first. Ties are broken by name.
func Breakdown(counts map[string]uint64, total uint64) []Language {
	if total == 0 {
		return nil
	}
	out := make([]Language, 0, len(counts))
	for name, lines := range counts {
		out = append(out, Language{
			Name:       name,
			Lines:      lines,
			Percentage: float64(lines) / float64(total) * 100,
			Color:      LanguageColor(name),
		})
	}
	slices.SortFunc(out, func(a, b Language) int {
		if c := cmp.Compare(b.Lines, a.Lines); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// SortByLines orders records by line count, largest first, falling back to
// ID so the order is deterministic.
func SortByLines(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		if c := cmp.Compare(b.TotalLines, a.TotalLines); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
