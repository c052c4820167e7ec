// Package watch delivers debounced filesystem change batches for the
// weft dev loop.
//
// Editors and build tools produce bursts of events per save (create,
// write, rename, chmod). The watcher folds a burst into one batch: the
// delivery timer restarts on every matching event and the batch goes
// out once the tree has been quiet for the debounce delay.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/go-weft/weft/pkg/logging"
)

// Filter reports whether a changed path is interesting.
type Filter func(path string) bool

// GoFiles matches Go source files.
func GoFiles(path string) bool {
	return filepath.Ext(path) == ".go"
}

// Watcher watches a directory tree and emits debounced change batches.
type Watcher struct {
	fsw     *fsnotify.Watcher
	delay   time.Duration
	filter  Filter
	log     *slog.Logger
	batches chan []string
}

// New creates a watcher that delivers a batch after delay of quiet. A
// nil filter accepts every path.
func New(delay time.Duration, filter Filter) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = func(string) bool { return true }
	}
	return &Watcher{
		fsw:     fsw,
		delay:   delay,
		filter:  filter,
		log:     logging.Logger("cli.watch"),
		batches: make(chan []string, 4),
	}, nil
}

// Batches returns the delivery channel. Paths within a batch are unique
// and sorted.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// AddRecursive watches root and every subdirectory, skipping hidden
// directories, underscore directories, vendor, testdata, and
// node_modules.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "vendor" || name == "testdata" || name == "node_modules"
}

// Run processes events until ctx is canceled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			// Directories created after startup join the watch so the
			// tree stays covered.
			if ev.Op.Has(fsnotify.Create) {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					if !skipDir(filepath.Base(ev.Name)) {
						if err := w.AddRecursive(ev.Name); err != nil {
							w.log.Warn("watch new directory", "path", ev.Name, "error", err)
						}
					}
					continue
				}
			}
			if !ev.Op.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			if !w.filter(ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.delay)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)

		case <-fire:
			timer = nil
			fire = nil
			if len(pending) == 0 {
				continue
			}
			batch := slices.Sorted(maps.Keys(pending))
			pending = map[string]struct{}{}
			select {
			case w.batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close stops the underlying watcher. Run returns after Close.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
