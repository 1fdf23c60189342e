package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher triggers a callback after filesystem activity under the configured
// roots settles. Events are debounced so a burst of writes causes one rescan.
type Watcher struct {
	roots    []string
	debounce time.Duration
	skip     func(name string) bool
	log      *zap.Logger
}

// NewWatcher creates a watcher for roots. The scanner's directory exclusions
// apply to newly discovered directories as well.
func NewWatcher(s *Scanner, roots []string, debounce time.Duration, log *zap.Logger) *Watcher {
	return &Watcher{
		roots:    roots,
		debounce: debounce,
		skip:     s.skipDir,
		log:      log,
	}
}

// Run watches until ctx is cancelled, invoking onChange after each debounced
// burst of events. onChange is never invoked concurrently with itself.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	for _, root := range w.roots {
		if err := w.addRecursive(fw, root); err != nil {
			w.log.Warn("watch root failed", zap.String("root", root), zap.Error(err))
		}
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// Watch directories as they appear so nested changes keep arriving.
			if ev.Op.Has(fsnotify.Create) {
				if base := filepath.Base(ev.Name); !w.skip(base) {
					_ = w.addRecursive(fw, ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.log.Debug("filesystem settled, triggering rescan")
			onChange()
		}
	}
}

// addRecursive registers dir and every non-excluded subdirectory. Passing a
// file path is harmless: WalkDir visits just that entry and it is not a dir.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skip(d.Name()) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
