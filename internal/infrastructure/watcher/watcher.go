// Package watcher notifies when coverage reports are rewritten.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultExtensions are the report types produced by JaCoCo and Kover.
var DefaultExtensions = []string{".xml", ".exec", ".ic", ".bin"}

// Watcher monitors coverage report files for changes.
type Watcher struct {
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	extensions []string
	ignored    []string
	logger     *slog.Logger
}

// Option configures the watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce duration for file change events. Test
// tasks usually rewrite several reports in a row.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithExtensions sets the file extensions to watch.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

// WithIgnoredNames skips files with the given base names, such as the
// aggregation files verification writes itself.
func WithIgnoredNames(names ...string) Option {
	return func(w *Watcher) {
		w.ignored = names
	}
}

// WithLogger sets the logger used for watch errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// New creates a new file watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fsw,
		debounce:   time.Second,
		extensions: DefaultExtensions,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// WatchDir adds a report directory and its subdirectories to the watch
// list. A directory that does not exist yet is created so reports written
// by the first test run are seen.
func (w *Watcher) WatchDir(root string) error {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return err
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Events returns a channel that emits once per burst of report changes.
// It is closed when ctx is done or the watcher is closed.
func (w *Watcher) Events(ctx context.Context) <-chan struct{} {
	out := make(chan struct{})

	go func() {
		defer close(out)

		var timer *time.Timer
		var timerCh <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !isWriteEvent(event.Op) || !w.hasRelevantExtension(event.Name) {
					continue
				}
				w.logger.Debug("coverage report changed", slog.String("file", event.Name), slog.String("op", event.Op.String()))
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C

			case <-timerCh:
				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
				timerCh = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", slog.Any("error", err))
			}
		}
	}()

	return out
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// isWriteEvent also accepts renames into place, which is how build tools
// publish finished reports.
func isWriteEvent(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create)
}

func (w *Watcher) hasRelevantExtension(path string) bool {
	if slices.Contains(w.ignored, filepath.Base(path)) {
		return false
	}
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(path)))
}
