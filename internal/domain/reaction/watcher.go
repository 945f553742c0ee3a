package reaction

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long to wait after the last event before reloading.
	Debounce time.Duration
	// OnReload is called with each catalog installed.
	OnReload func(*Catalog)
	// OnError is called when a changed file fails to load. The previous
	// catalog stays installed.
	OnError func(error)
}

// Watcher reloads a catalog file into a Registry whenever it changes.
//
// The parent directory is watched rather than the file, so editors that
// replace the file by rename are picked up.
type Watcher struct {
	path     string
	registry *Registry
	opts     WatcherOptions
	watcher  *fsnotify.Watcher

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher loads path into registry once and prepares to watch it.
func NewWatcher(path string, registry *Registry, opts WatcherOptions) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := registry.LoadFile(abs); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:     abs,
		registry: registry,
		opts:     opts,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Run processes events until ctx is cancelled or Stop is called.
func (w *Watcher) Run(ctx context.Context) {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	c, err := w.registry.LoadFile(w.path)
	if err != nil {
		w.reportError(err)
		return
	}
	if w.opts.OnReload != nil {
		w.opts.OnReload(c)
	}
}

func (w *Watcher) reportError(err error) {
	if w.opts.OnError != nil {
		w.opts.OnError(err)
	}
}

// Stop releases the underlying watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}
