package layout

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit for a single save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a layout file whenever it changes on disk.
type Watcher struct {
	Path     string
	Debounce time.Duration
	OnChange func(*Layout)

	w *fsnotify.Watcher
}

// NewWatcher watches the file's directory rather than the file itself so that atomic
// rename-on-save keeps being observed.
func NewWatcher(path string, onChange func(*Layout)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{Path: path, Debounce: DefaultDebounce, OnChange: onChange, w: w}, nil
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (lw *Watcher) Run(ctx context.Context) error {
	defer func() {
		if err := lw.w.Close(); err != nil {
			log.Printf("[LAYOUT] Error closing watcher: %v", err)
		}
	}()

	target := filepath.Clean(lw.Path)
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-lw.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(lw.Debounce)
			} else {
				timer.Reset(lw.Debounce)
			}
			fire = timer.C
		case err, ok := <-lw.w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[LAYOUT] Watch error: %v", err)
		case <-fire:
			fire = nil
			l, err := Load(lw.Path)
			if err != nil {
				log.Printf("[LAYOUT] Ignoring unreadable layout %s: %v", lw.Path, err)
				continue
			}
			log.Printf("[LAYOUT] Reloaded %s (%d zones)", lw.Path, len(l.Zones))
			if lw.OnChange != nil {
				lw.OnChange(l)
			}
		}
	}
}
