package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	rewatchAttempts = 20
	rewatchDelay    = 50 * time.Millisecond
)

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	watcher *fsnotify.Watcher
	current *Config
}

// NewWatcher creates a watcher for path, seeded with the already loaded cfg.
func NewWatcher(path string, cfg *Config, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		path:    path,
		logger:  logger,
		current: cfg,
	}, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Watch calls onChange with the reloaded configuration whenever the file is
// written. Invalid configurations are logged and skipped. Watching stops
// when ctx is done or Close is called.
func (w *Watcher) Watch(ctx context.Context, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	w.logger.Info("watching config file for changes", slog.String("path", w.path))

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				w.logger.Debug("config watch stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					// Editors that save by renaming a new file over the old
					// one end the watch on the old inode.
					if err := w.rewatch(watcher); err != nil {
						w.logger.Error("config file watch lost",
							slog.String("error", err.Error()),
							slog.String("path", w.path))
						continue
					}
				} else if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				w.logger.Info("config file changed, reloading", slog.String("path", event.Name))

				cfg, err := Load(w.path)
				if err != nil {
					w.logger.Error("failed to reload config",
						slog.String("error", err.Error()),
						slog.String("path", w.path))
					continue
				}

				w.mu.Lock()
				w.current = cfg
				w.mu.Unlock()

				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}

// rewatch adds the path again once the replacement file appears.
func (w *Watcher) rewatch(watcher *fsnotify.Watcher) error {
	var err error
	for i := 0; i < rewatchAttempts; i++ {
		if err = watcher.Add(w.path); err == nil {
			return nil
		}
		time.Sleep(rewatchDelay)
	}
	return fmt.Errorf("re-watch %s: %w", w.path, err)
}

// Close stops watching the config file.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher != nil {
		err := w.watcher.Close()
		w.watcher = nil
		return err
	}

	return nil
}
