package analysis

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/codecity/pkg/errors"
)

// DefaultDebounce is the quiet period before a batch of changes is emitted.
const DefaultDebounce = 500 * time.Millisecond

// Change is a debounced batch of modified paths below a watched root.
type Change struct {
	Root  string
	Paths []string
}

// Watcher reports changes in repository working trees. Ignored and hidden
// directories (including .git) are not watched.
type Watcher struct {
	fs       *fsnotify.Watcher
	ignore   *ignorer
	roots    []string
	debounce time.Duration
	a        *Analyzer
}

// NewWatcher watches the given repository roots recursively. A debounce of
// zero selects DefaultDebounce.
func (a *Analyzer) NewWatcher(debounce time.Duration, roots ...string) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no paths to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create watcher")
	}
	w := &Watcher{fs: fw, ignore: a.ignore, debounce: debounce, a: a}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			_ = fw.Close()
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", r)
		}
		if err := w.addTree(abs, abs); err != nil {
			_ = fw.Close()
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", r)
		}
		w.roots = append(w.roots, abs)
	}
	return w, nil
}

func (w *Watcher) addTree(root, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root {
			rel, _ := filepath.Rel(root, p)
			if w.ignore.match(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		return w.fs.Add(p)
	})
}

// rootOf returns the watched root containing p and p relative to it.
func (w *Watcher) rootOf(p string) (string, string, bool) {
	for _, r := range w.roots {
		rel, err := filepath.Rel(r, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel != ".." && !strings.HasPrefix(rel, "../") {
			return r, rel, true
		}
	}
	return "", "", false
}

// Watch emits debounced changes until ctx is done. The channel is closed
// when watching stops.
func (w *Watcher) Watch(ctx context.Context) <-chan Change {
	out := make(chan Change)
	go w.loop(ctx, out)
	return out
}

func (w *Watcher) loop(ctx context.Context, out chan<- Change) {
	defer close(out)

	pending := make(map[string]map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			root, rel, ok := w.rootOf(ev.Name)
			if !ok || rel == "." || w.ignore.match(rel, false) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.addTree(root, ev.Name)
				}
			}
			if pending[root] == nil {
				pending[root] = make(map[string]bool)
			}
			pending[root][rel] = true
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.a.logger.Warn("watch error", "err", err)

		case <-timer.C:
			for _, root := range sortedKeys(pending) {
				c := Change{Root: root, Paths: sortedKeys(pending[root])}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
			pending = make(map[string]map[string]bool)
		}
	}
}

// Close stops the underlying notifier.
func (w *Watcher) Close() error { return w.fs.Close() }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
