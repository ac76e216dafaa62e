package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	domainconfig "github.com/felixgeelhaar/agent-runtime/domain/config"
	"github.com/felixgeelhaar/agent-runtime/infrastructure/logging"
)

// DefaultDebounce is how long the watcher waits after the last file event
// before reloading.
const DefaultDebounce = 100 * time.Millisecond

// ChangeFunc receives a freshly loaded configuration.
type ChangeFunc func(*domainconfig.RuntimeConfig)

// Watcher reloads a configuration file when it changes on disk. Only
// successfully loaded and validated configurations are delivered.
type Watcher struct {
	path     string
	loader   *Loader
	onChange ChangeFunc
	debounce time.Duration

	mu      sync.Mutex
	current *domainconfig.RuntimeConfig
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the reload debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLoader sets the loader used on reload.
func WithWatchLoader(l *Loader) WatcherOption {
	return func(w *Watcher) {
		w.loader = l
	}
}

// NewWatcher loads path once and returns a watcher for it.
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     filepath.Clean(path),
		loader:   NewLoader(),
		onChange: onChange,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		return nil, err
	}
	w.current = cfg
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *domainconfig.RuntimeConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches the file until ctx is cancelled. The parent directory is
// watched so that editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.Warn().
				Add(logging.Component("config")).
				Add(logging.ErrorField(err)).
				Msg("config watcher error")

		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.LoadFile(w.path)
	if err != nil {
		logging.Warn().
			Add(logging.Component("config")).
			Add(logging.Str("path", w.path)).
			Add(logging.ErrorField(err)).
			Msg("config reload failed, keeping previous")
		return
	}

	w.mu.Lock()
	w.current = cfg
	w.mu.Unlock()

	logging.Info().
		Add(logging.Component("config")).
		Add(logging.Str("path", w.path)).
		Msg("config reloaded")

	if w.onChange != nil {
		w.onChange(cfg)
	}
}
