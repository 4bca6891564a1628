package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 150 * time.Millisecond

// Watch calls onChange with the reloaded config whenever path is written,
// created or renamed into place. The parent directory is watched because
// editors usually replace the file. Invalid files are logged and skipped.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	logger := zerolog.Ctx(ctx)
	target := filepath.Clean(path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				pending = time.After(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("path", path).Msg("config watcher error")
		case <-pending:
			pending = nil
			cfg, err := LoadFrom(path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("config reload failed")
				continue
			}
			logger.Debug().Str("path", path).Msg("config reloaded")
			onChange(cfg)
		}
	}
}
