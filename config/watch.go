package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lone-faerie/thermo/log"
)

// DefaultDebounce is the time a [Watcher] waits after the last change before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the config whenever one of its files changes.
type Watcher struct {
	paths    []string
	debounce time.Duration
	onChange func(*Config)
}

// NewWatcher returns a Watcher for the config files or directories at paths.
// The paths are loaded with [Load] on every change and the result passed to onChange.
func NewWatcher(onChange func(*Config), paths ...string) *Watcher {
	return &Watcher{
		paths:    paths,
		debounce: DefaultDebounce,
		onChange: onChange,
	}
}

// WithDebounce sets the debounce duration.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// watched returns the directories to add to the watcher and a func reporting
// whether an event for the given file is relevant.
func (w *Watcher) watched() (dirs []string, match func(string) bool) {
	var (
		files    = make(map[string]bool)
		cfgDirs  = make(map[string]bool)
		seenDirs = make(map[string]bool)
	)
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			log.WarnError("Unable to resolve config path", err, "path", p)
			continue
		}
		dir := abs
		if isYAML(abs) {
			files[abs] = true
			dir = filepath.Dir(abs)
		} else {
			cfgDirs[abs] = true
		}
		if !seenDirs[dir] {
			seenDirs[dir] = true
			dirs = append(dirs, dir)
		}
	}
	match = func(name string) bool {
		abs, err := filepath.Abs(name)
		if err != nil {
			return false
		}
		return files[abs] || (cfgDirs[filepath.Dir(abs)] && isYAML(abs))
	}
	return
}

// Watch blocks until ctx is done or the watcher fails. Editors often replace a file
// rather than write it, so the containing directories are watched.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs, match := w.watched()
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
		log.Debug("Watching config", "dir", dir)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !match(event.Name) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() { w.reload(ctx) })
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WarnError("Config watcher error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := Load(w.paths...)
	if err != nil {
		log.Error("Unable to reload config", err)
		return
	}
	log.Info("Config changed", "path", w.paths)
	w.onChange(cfg)
}
