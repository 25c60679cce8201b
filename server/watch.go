package server

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchFile signals on the returned channel when path is written or replaced.
// The directory is watched rather than the file, as editors often save by
// renaming a new file over the old one. Bursts of events are coalesced.
func watchFile(ctx context.Context, path string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch project file: %w", err)
	}
	name := filepath.Clean(path)
	ret := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) == name && event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					debounce = time.After(100 * time.Millisecond)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watching %s: %v", path, err)
			case <-debounce:
				debounce = nil
				select {
				case ret <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ret, nil
}
