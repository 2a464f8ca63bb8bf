package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the configuration file and emits an empty struct on the
// returned channel when it changes. Writes are debounced so editors that
// save atomically (write + rename) trigger a single reload. The watcher
// goroutine exits when ctx is cancelled.
func Watch(ctx context.Context, path string) <-chan struct{} {
	reloadCh := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create config watcher", "error", err)
		return reloadCh
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	// Watch the directory, not the file: an atomic save replaces the file's
	// inode, which would silently end a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		slog.Warn("Could not watch config file", "file", absPath, "error", err)
	}

	go func() {
		defer watcher.Close()
		defer close(reloadCh)

		var debounce *time.Timer

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					slog.Info("Configuration change detected", "file", event.Name)
					select {
					case reloadCh <- struct{}{}:
					default:
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Config watcher error", "error", err)
			}
		}
	}()

	return reloadCh
}
