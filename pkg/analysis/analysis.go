// Package analysis measures git repositories for the code city.
//
// An [Analyzer] walks a working tree, classifies files with enry, counts
// lines per language and reads commit history with go-git to date the
// repository and each of its directories. The result is a
// [metrics.Repository] ready for layout.
//
// # Ignore Rules
//
// Dependency and build directories ([IgnoredNames]) and hidden entries are
// always skipped. Additional glob patterns are matched against the
// slash-separated path relative to the repository root:
//
//	a, _ := analysis.New(analysis.Options{Ignore: []string{"**/testdata/**", "*.pb.go"}})
//	repo, err := a.Analyze(ctx, "/src/myproject")
//
// # Remote Repositories
//
// [Analyzer.AnalyzeRemote] clones a GitHub repository into a temporary
// directory, retrying transient network failures, and reports the clone
// URL as the repository path.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v5"
	"github.com/google/uuid"
	"github.com/src-d/enry/v2"

	"github.com/matzehuels/codecity/pkg/cache"
	"github.com/matzehuels/codecity/pkg/errors"
	"github.com/matzehuels/codecity/pkg/metrics"
)

// RootName names the directory node holding files at the repository root.
const RootName = "(root)"

// DefaultMaxFileSize bounds the files that are read for line counting.
const DefaultMaxFileSize = 2 << 20

// IgnoredNames are directory and file names skipped at any depth.
var IgnoredNames = []string{
	".git", "node_modules", "target", "dist", "build", ".next", "__pycache__",
	".venv", "venv", ".idea", ".vscode", "vendor", ".cargo", "deps", "_build",
}

// languageAliases folds enry language names into the names used by the
// color table.
var languageAliases = map[string]string{
	"TSX": "TypeScript",
}

// Options configures an [Analyzer].
type Options struct {
	// Ignore holds extra glob patterns ("**" crosses directories).
	Ignore []string
	// MaxFileSize skips larger files; 0 means DefaultMaxFileSize.
	MaxFileSize int64
	// BaseURL is the clone host for AnalyzeRemote; defaults to GitHubURL.
	BaseURL string
	// CloneTimeout bounds a single clone attempt; defaults to DefaultCloneTimeout.
	CloneTimeout time.Duration
	Logger       *log.Logger
	// Now overrides the clock used for ages.
	Now func() time.Time
}

// Analyzer measures repositories. It is safe for concurrent use.
type Analyzer struct {
	ignore       *ignorer
	maxFileSize  int64
	baseURL      string
	cloneTimeout time.Duration
	logger       *log.Logger
	now          func() time.Time
}

// New creates an Analyzer. It fails with ErrCodeInvalidInput when an
// ignore pattern does not compile.
func New(opts Options) (*Analyzer, error) {
	ign, err := newIgnorer(opts.Ignore)
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		ignore:       ign,
		maxFileSize:  opts.MaxFileSize,
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		cloneTimeout: opts.CloneTimeout,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if a.maxFileSize <= 0 {
		a.maxFileSize = DefaultMaxFileSize
	}
	if a.baseURL == "" {
		a.baseURL = GitHubURL
	}
	if a.cloneTimeout <= 0 {
		a.cloneTimeout = DefaultCloneTimeout
	}
	if a.logger == nil {
		a.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a, nil
}

// RepositoryID derives the ID of a repository from its source (absolute
// path or clone URL). Analyzing the same source again yields the same ID,
// so stores replace the earlier result instead of duplicating it.
func RepositoryID(source string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)).String()
}

// Analyze measures the git repository at root.
func (a *Analyzer) Analyze(ctx context.Context, root string) (metrics.Repository, error) {
	if err := errors.ValidateLocalPath(root); err != nil {
		return metrics.Repository{}, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return metrics.Repository{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return metrics.Repository{}, errors.New(errors.ErrCodeInvalidPath, "not a directory: %s", root)
	}
	repo, err := a.analyze(ctx, abs, filepath.Base(abs), abs)
	if err != nil {
		return metrics.Repository{}, err
	}
	return repo, nil
}

// analyze measures the working tree at dir and reports it under name and
// source.
func (a *Analyzer) analyze(ctx context.Context, dir, name, source string) (metrics.Repository, error) {
	start := time.Now()
	logger := a.logger.With("repo", name)

	g, err := gogit.PlainOpen(dir)
	if err != nil {
		if err == gogit.ErrRepositoryNotExists {
			return metrics.Repository{}, errors.New(errors.ErrCodeNotGitRepo, "not a git repository: %s", dir)
		}
		return metrics.Repository{}, errors.Wrap(errors.ErrCodeInternal, err, "open repository %s", dir)
	}

	hist, err := loadHistory(ctx, g)
	if err != nil {
		return metrics.Repository{}, err
	}
	logger.Debug("history loaded", "commits", hist.len())

	tally, err := a.walk(ctx, dir)
	if err != nil {
		return metrics.Repository{}, err
	}
	logger.Debug("files counted", "files", tally.files, "lines", tally.total)

	now := a.now()
	dirs := tally.tree()
	dateDirectories(dirs, hist, now)

	repo := metrics.Repository{
		ID:          RepositoryID(source),
		Name:        name,
		Path:        source,
		AgeDays:     ageDays(hist.oldest(), now),
		TotalLines:  tally.total,
		Languages:   metrics.Breakdown(tally.languages, tally.total),
		Directories: dirs,
		AnalyzedAt:  now.UTC(),
	}
	logger.Info("analyzed", "lines", metrics.FormatLines(repo.TotalLines), "dirs", len(dirs), "took", time.Since(start).Round(time.Millisecond))
	return repo, nil
}

// Head returns the commit hash HEAD points to. It is used to key cached
// analyses.
func Head(root string) (string, error) {
	g, err := gogit.PlainOpen(root)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotGitRepo, err, "open %s", root)
	}
	ref, err := g.Head()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNoCommits, err, "resolve HEAD of %s", root)
	}
	return ref.Hash().String(), nil
}

// =============================================================================
// File walk
// =============================================================================

type dirTally struct {
	lines     uint64
	languages map[string]uint64
}

type tally struct {
	files     int
	total     uint64
	languages map[string]uint64
	dirs      map[string]*dirTally // keyed by slash path, "" for the root
}

func (a *Analyzer) walk(ctx context.Context, root string) (*tally, error) {
	t := &tally{languages: make(map[string]uint64), dirs: make(map[string]*dirTally)}
	err := a.eachFile(ctx, root, func(full, rel string, _ fs.DirEntry) {
		if lang, lines, ok := a.classify(full, rel); ok {
			t.add(path.Dir(rel), lang, lines)
		}
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// eachFile calls fn for every regular file below root that the ignore
// rules keep. rel is slash-separated and relative to root.
func (a *Analyzer) eachFile(ctx context.Context, root string, fn func(full, rel string, d fs.DirEntry)) error {
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			a.logger.Debug("skipping unreadable entry", "path", p, "err", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p == root {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if a.ignore.match(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			fn(p, rel, d)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(errors.ErrCodeTimeout, err, "analysis cancelled")
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "walk %s", root)
	}
	return nil
}

// Fingerprint hashes the path, size and modification time of every file
// the analysis would read. Two calls agree only if the counted part of the
// working tree is unchanged, committed or not.
func (a *Analyzer) Fingerprint(ctx context.Context, root string) (string, error) {
	var buf bytes.Buffer
	err := a.eachFile(ctx, root, func(_, rel string, d fs.DirEntry) {
		info, err := d.Info()
		if err != nil {
			return
		}
		fmt.Fprintf(&buf, "%s\x00%d\x00%d\n", rel, info.Size(), info.ModTime().UnixNano())
	})
	if err != nil {
		return "", err
	}
	return cache.Hash(buf.Bytes()), nil
}

// classify detects the language of a file and counts its lines.
func (a *Analyzer) classify(full, rel string) (string, uint64, bool) {
	if enry.IsVendor(rel) {
		return "", 0, false
	}
	info, err := os.Stat(full)
	if err != nil || info.Size() > a.maxFileSize {
		return "", 0, false
	}
	content, err := os.ReadFile(full)
	if err != nil || enry.IsBinary(content) {
		return "", 0, false
	}
	lang := enry.GetLanguage(path.Base(rel), content)
	if lang == "" || lang == "Text" {
		return "", 0, false
	}
	if alias, ok := languageAliases[lang]; ok {
		lang = alias
	}
	return lang, countLines(content), true
}

// countLines counts lines the way editors do: a trailing newline does not
// start another line.
func countLines(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	n := uint64(bytes.Count(b, []byte{'\n'}))
	if b[len(b)-1] != '\n' {
		n++
	}
	return n
}

func (t *tally) add(dir, lang string, lines uint64) {
	t.files++
	t.total += lines
	t.languages[lang] += lines
	if dir == "." {
		dir = ""
	}
	// Root files stay in the root node; nested files count toward every
	// ancestor below the root.
	if dir == "" {
		t.dirTally("").add(lang, lines)
		return
	}
	for d := dir; d != "."; d = path.Dir(d) {
		t.dirTally(d).add(lang, lines)
	}
}

func (t *tally) dirTally(p string) *dirTally {
	d, ok := t.dirs[p]
	if !ok {
		d = &dirTally{languages: make(map[string]uint64)}
		t.dirs[p] = d
	}
	return d
}

func (d *dirTally) add(lang string, lines uint64) {
	d.lines += lines
	d.languages[lang] += lines
}

// tree assembles the directory hierarchy. Siblings are sorted by lines,
// largest first.
func (t *tally) tree() []metrics.Directory {
	children := make(map[string][]string)
	for p := range t.dirs {
		if p == "" {
			continue
		}
		parent := path.Dir(p)
		if parent == "." {
			parent = ""
		}
		children[parent] = append(children[parent], p)
	}

	var build func(parent string) []metrics.Directory
	build = func(parent string) []metrics.Directory {
		var out []metrics.Directory
		for _, p := range children[parent] {
			d := t.dirs[p]
			out = append(out, metrics.Directory{
				Name:      path.Base(p),
				Path:      p,
				Lines:     d.lines,
				Languages: metrics.Breakdown(d.languages, d.lines),
				Children:  build(p),
			})
		}
		sortDirs(out)
		return out
	}

	top := build("")
	if root, ok := t.dirs[""]; ok {
		top = append(top, metrics.Directory{
			Name:      RootName,
			Lines:     root.lines,
			Languages: metrics.Breakdown(root.languages, root.lines),
		})
		sortDirs(top)
	}
	return top
}

func sortDirs(dirs []metrics.Directory) {
	slices.SortStableFunc(dirs, func(a, b metrics.Directory) int {
		if a.Lines != b.Lines {
			if a.Lines > b.Lines {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Path, b.Path)
	})
}
