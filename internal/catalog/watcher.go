package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/josephgoksu/concierge/internal/events"
	"github.com/spf13/afero"
)

// Watcher serves the current catalog and reloads it when the override file
// changes on disk. It satisfies the same read-only lookup as *Catalog.
type Watcher struct {
	fs      afero.Fs
	path    string
	current atomic.Pointer[Catalog]
	reloads *events.Emitter[*Catalog]
	logger  *slog.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher loads path once. Call Start to follow changes.
func NewWatcher(fs afero.Fs, path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := Load(fs, path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{fs: fs, path: path, reloads: events.NewEmitter[*Catalog](), logger: logger}
	w.current.Store(c)
	return w, nil
}

// Current returns the catalog in effect.
func (w *Watcher) Current() *Catalog { return w.current.Load() }

// Category looks up id in the current catalog.
func (w *Watcher) Category(id string) (Category, bool) { return w.Current().Category(id) }

// Rows returns the current picker rows.
func (w *Watcher) Rows() (primary, secondary []string) { return w.Current().Rows() }

// Reloads emits each successfully reloaded catalog.
func (w *Watcher) Reloads() *events.Emitter[*Catalog] { return w.reloads }

// Start watches the directory holding the catalog file. Editors often replace
// files by rename, so the directory rather than the file is watched.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch catalog dir: %w", err)
	}
	w.watcher = fw

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	_ = w.watcher.Close()
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	target := filepath.Clean(w.path)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.Reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("catalog watch error", "error", err)
		case <-ctx.Done():
			return
		}
	}
}

// Reload re-reads the catalog file. A file that fails to parse leaves the
// previous catalog in place.
func (w *Watcher) Reload() {
	c, err := Load(w.fs, w.path)
	if err != nil {
		w.logger.Warn("catalog reload failed, keeping previous", "path", w.path, "error", err)
		return
	}
	w.current.Store(c)
	w.logger.Info("catalog reloaded", "path", w.path, "categories", len(c.categories))
	w.reloads.Emit(c)
}
