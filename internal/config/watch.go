package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch watches the directory holding the active config.yaml (the one
// resolved by the last Load call) and calls onChange with a freshly
// reloaded Config whenever the file is written, after a short debounce —
// the same directory-watch-plus-debounce shape as
// untoldecay/BeadsLog's daemon file watcher, scoped down to a single config
// file instead of a JSONL log plus git refs. It returns a stop func; the
// caller should defer it.
func Watch(onChange func(*Config, error)) (stop func(), err error) {
	dir := v.ConfigFileUsed()
	if dir == "" {
		dir = filepath.Join(apprenticeHome(), "config.yaml")
	}
	dir = filepath.Dir(dir)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("apprentice/config: watch: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("apprentice/config: watch %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		var debounce *time.Timer
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != "config.yaml" {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(200*time.Millisecond, func() {
					cfg, loadErr := Load()
					onChange(cfg, loadErr)
				})
			case lerr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onChange(nil, fmt.Errorf("apprentice/config: watch: %w", lerr))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
