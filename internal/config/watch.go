package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/chatterm/internal/logger"
)

// Watch re-loads the config file at path whenever it changes and passes the
// result to fn. The parent directory is watched so that editors replacing the
// file atomically are seen too. Watching stops when ctx is done.
//
// Environment overrides are re-applied to every reloaded config. Files that
// fail to parse or validate are logged and skipped.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go watchLoop(ctx, watcher, abs, fn)
	return nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, fn func(*Config)) {
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := reload(path)
			if err != nil {
				logger.Global().Warn("config reload: %v", err)
				continue
			}
			logger.Global().Debug("config reloaded from %s", path)
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Global().Error("config watcher error: %v", err)
		}
	}
}

func reload(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
