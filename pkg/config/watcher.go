package config

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/getmockd/stubd/pkg/logging"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 250 * time.Millisecond

// Watcher calls OnChange after mapping files below Dir change.
type Watcher struct {
	Dir      string
	OnChange func()
	Debounce time.Duration
	log      *slog.Logger
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, onChange func()) *Watcher {
	return &Watcher{Dir: dir, OnChange: onChange, Debounce: DefaultDebounce, log: logging.Nop()}
}

// SetLogger sets the operational logger.
func (w *Watcher) SetLogger(log *slog.Logger) {
	if log != nil {
		w.log = log
	}
}

// Run watches until ctx is cancelled. New subdirectories are watched as they
// appear.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.Dir); err != nil {
		return err
	}
	w.log.Info("watching mappings", "dir", w.Dir)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// A new directory may hold mapping files later.
				_ = w.addTree(fw, event.Name)
			}
			if !isMappingFile(event.Name) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("mapping file changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "error", err)

		case <-timer.C:
			if w.OnChange != nil {
				w.OnChange()
			}
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func isMappingFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
