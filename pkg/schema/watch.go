package schema

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Registry from a directory when schema files change.
// A reload that fails keeps the previous schemas.
type Watcher struct {
	dir      string
	registry *Registry
	logger   *slog.Logger
	debounce time.Duration
	onReload func(error)

	watcher *fsnotify.Watcher
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger of reload events.
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) { w.logger = logger }
}

// WithDebounce sets how long the watcher waits for changes to settle.
// Default: 200ms.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithReloadHook sets a function called after every reload attempt with
// its error, or nil on success.
func WithReloadHook(fn func(error)) WatchOption {
	return func(w *Watcher) { w.onReload = fn }
}

// Watch starts watching dir and its subdirectories, reloading registry on
// change. The watcher stops when ctx ends or Close is called.
func Watch(ctx context.Context, dir string, registry *Registry, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:      dir,
		registry: registry,
		logger:   slog.Default(),
		debounce: 200 * time.Millisecond,
		watcher:  fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "schema-watcher", "dir", dir)

	if err := w.addTree(dir); err != nil {
		fw.Close()
		return nil, err
	}

	go w.run(ctx)
	return w, nil
}

// Close stops the watcher and waits for it to exit.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("schema change", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

// relevant reports whether event can change the loaded schemas. New
// directories are added to the watch list.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return isSchemaFile(filepath.ToSlash(event.Name))
}

func (w *Watcher) reload() {
	next, err := LoadDir(w.dir)
	if err != nil {
		w.logger.Error("schema reload failed, keeping previous schemas", "error", err)
	} else {
		w.registry.Replace(next)
		w.logger.Info("schemas reloaded", "forms", next.IDs())
	}
	if w.onReload != nil {
		w.onReload(err)
	}
}
