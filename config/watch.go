package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the reloaded configuration every time the file at
// path is written or replaced, until ctx is done. Invalid configurations
// are passed to fn with their error. The directory is watched so that
// editors replacing the file are noticed.
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				fn(Load(abs))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				fn(Config{}, fmt.Errorf("config: watch: %w", err))
			}
		}
	}()
	return nil
}
