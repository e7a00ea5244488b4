// Package watch reloads cached range tables when their data files change
// on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/TomasB/geoiplite/internal/ranges"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a data file must stay quiet before it is
// reloaded.
const DefaultDebounce = 500 * time.Millisecond

// Refresher replaces the cached table of a family.
type Refresher interface {
	Refresh(ctx context.Context, family ipaddr.Family) error
	IsCached(family ipaddr.Family) bool
}

// Watcher watches a data directory and refreshes the table of every family
// whose file was written, created or renamed into place.
type Watcher struct {
	dir      string
	target   Refresher
	logger   *slog.Logger
	debounce time.Duration
	fsw      *fsnotify.Watcher
	files    map[string]ipaddr.Family
}

// New starts watching dir. debounce <= 0 selects DefaultDebounce.
func New(dir string, target Refresher, logger *slog.Logger, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched rather than the files so that atomic
	// replacement by rename is seen.
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	files := make(map[string]ipaddr.Family, len(ipaddr.Families))
	for _, f := range ipaddr.Families {
		files[ranges.FileName(f)] = f
	}

	return &Watcher{
		dir:      dir,
		target:   target,
		logger:   logger,
		debounce: debounce,
		fsw:      fsw,
		files:    files,
	}, nil
}

// Run handles file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	fire := make(chan ipaddr.Family)
	timers := make(map[ipaddr.Family]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	w.logger.Info("watching data directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			family, tracked := w.files[filepath.Base(ev.Name)]
			if !tracked || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.logger.Debug("data file changed", "file", ev.Name, "op", ev.Op.String())
			if t, ok := timers[family]; ok {
				t.Reset(w.debounce)
				continue
			}
			timers[family] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- family:
				case <-ctx.Done():
				}
			})

		case family := <-fire:
			delete(timers, family)
			w.refresh(ctx, family)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) refresh(ctx context.Context, family ipaddr.Family) {
	// Families nobody loaded through the cache stay unloaded.
	if !w.target.IsCached(family) {
		w.logger.Debug("skipping refresh of uncached family", "family", family.String())
		return
	}
	if err := w.target.Refresh(ctx, family); err != nil {
		w.logger.Error("data refresh failed", "family", family.String(), "error", err)
		return
	}
	w.logger.Info("data refreshed", "family", family.String())
}
