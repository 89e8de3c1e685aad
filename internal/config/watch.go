package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/orwatch/orwatch/internal/logging"
)

// watchDebounce coalesces editor write bursts into one reload.
const watchDebounce = 250 * time.Millisecond

// Watch invokes onChange whenever the settings or credentials file changes,
// until ctx is cancelled. Callers reload and re-apply configuration from the
// callback.
func Watch(ctx context.Context, onChange func()) error {
	return watchDir(ctx, ConfigDir(), onChange)
}

func watchDir(ctx context.Context, dir string, onChange func()) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	log := logging.Component("config-watch")

	go func() {
		defer watcher.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !relevantEvent(ev) {
					continue
				}
				log.Debug().Str("file", filepath.Base(ev.Name)).Str("op", ev.Op.String()).Msg("config_changed")
				pending = time.After(watchDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watch_error")
			case <-pending:
				pending = nil
				onChange()
			}
		}
	}()

	return nil
}

func relevantEvent(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
		!ev.Op.Has(fsnotify.Rename) && !ev.Op.Has(fsnotify.Remove) {
		return false
	}
	switch filepath.Base(ev.Name) {
	case "settings.json", "credentials.json":
		return true
	}
	return false
}
