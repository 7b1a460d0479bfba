// Package watcher reports debounced batches of file changes under a set of
// directories, for emit --watch.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/tsgonest/typeguard/internal/analyzer"
)

// Event represents a file change event.
type Event struct {
	Path string
	Op   string // "create", "write", "remove", "rename"
}

// DefaultDebounce is used when no debounce period is configured.
const DefaultDebounce = 100 * time.Millisecond

// Watcher watches directory trees for changes to files matching its globs.
// Changes arriving within the debounce period of each other are delivered as
// one batch, one event per path.
type Watcher struct {
	dirs     []string
	include  []string // file globs, e.g. ["**/*.yaml"]
	exclude  []string
	debounce time.Duration
	onChange func(events []Event)
	log      *zap.Logger
}

// New creates a new file watcher. onChange runs on the watching goroutine;
// events that arrive while it runs are delivered in the next batch.
func New(dirs, include, exclude []string, debounce time.Duration, onChange func(events []Event), log *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dirs:     dirs,
		include:  include,
		exclude:  exclude,
		debounce: debounce,
		onChange: onChange,
		log:      log,
	}
}

// Watch blocks until ctx is done, delivering batches to onChange. Directories
// created while watching are watched too.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fw.Close()

	for _, dir := range w.dirs {
		if err := w.addTree(fw, dir); err != nil {
			return err
		}
	}

	var (
		pending = newBatch()
		timer   *time.Timer
		fire    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.log.Warn("watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			op := opName(ev.Op)
			if op == "" || !w.matches(ev.Name) {
				continue
			}
			w.log.Debug("file changed", zap.String("file", ev.Name), zap.String("op", op))
			pending.add(Event{Path: ev.Name, Op: op})

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if events := pending.drain(); len(events) > 0 && w.onChange != nil {
				w.onChange(events)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

// matches reports whether a change to path is delivered. No include globs
// means every file that is not excluded.
func (w *Watcher) matches(path string) bool {
	if len(w.include) == 0 {
		return analyzer.MatchesGlob(path, []string{"**"}, w.exclude)
	}
	return analyzer.MatchesGlob(path, w.include, w.exclude)
}

// addTree watches dir and every directory beneath it, skipping excluded and
// hidden directories.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walking %s", path)
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (isHidden(d.Name()) || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		return nil
	})
}

func (w *Watcher) excluded(dir string) bool {
	sample := filepath.Join(dir, "_")
	for _, pattern := range w.exclude {
		if analyzer.MatchesGlob(sample, []string{pattern}, nil) {
			return true
		}
	}
	return false
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}

func opName(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "create"
	case op.Has(fsnotify.Write):
		return "write"
	case op.Has(fsnotify.Remove):
		return "remove"
	case op.Has(fsnotify.Rename):
		return "rename"
	}
	return ""
}

// batch coalesces events by path, keeping first-seen order and the latest op.
type batch struct {
	order []string
	ops   map[string]string
}

func newBatch() *batch {
	return &batch{ops: make(map[string]string)}
}

func (b *batch) add(ev Event) {
	prev, seen := b.ops[ev.Path]
	if !seen {
		b.order = append(b.order, ev.Path)
	}
	// A file created and then written within one batch is still new.
	if prev == "create" && ev.Op == "write" {
		return
	}
	b.ops[ev.Path] = ev.Op
}

func (b *batch) drain() []Event {
	events := make([]Event, len(b.order))
	for i, p := range b.order {
		events[i] = Event{Path: p, Op: b.ops[p]}
	}
	b.order = b.order[:0]
	clear(b.ops)
	return events
}
