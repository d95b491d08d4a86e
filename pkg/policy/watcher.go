package policy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// PackWatcher watches a pack directory for changes and triggers reloads.
// It debounces rapid events so a multi-file pack deploy causes one reload,
// not one per file.
type PackWatcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *PackWatcherConfig
	debounce *debouncer

	mu       sync.Mutex
	running  bool
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// PackWatcherConfig contains configuration for the pack watcher.
type PackWatcherConfig struct {
	// Dir is the pack directory to watch.
	Dir string

	// DebounceInterval is the quiet period required before a reload fires
	// (default: 250ms).
	DebounceInterval time.Duration
}

// DefaultPackWatcherConfig returns the default watcher configuration.
func DefaultPackWatcherConfig(dir string) *PackWatcherConfig {
	return &PackWatcherConfig{
		Dir:              dir,
		DebounceInterval: 250 * time.Millisecond,
	}
}

// NewPackWatcher creates a new pack watcher.
func NewPackWatcher(config *PackWatcherConfig, logger *slog.Logger) (*PackWatcher, error) {
	if config == nil {
		return nil, fmt.Errorf("watcher config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &PackWatcher{
		watcher:  watcher,
		logger:   logger.With("component", "policy.watcher"),
		config:   config,
		debounce: newDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks, invoking onReload after each debounced burst of pack file
// changes, until the context is cancelled or Stop is called. The fsnotify
// watcher and debounce timer are released when Watch returns, whichever way
// it exits; a PackWatcher is not reusable after that.
func (w *PackWatcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.debounce.stop()
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("failed to close fsnotify watcher", "error", err)
		}
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch pack directory: %w", err)
	}

	w.logger.Info("pack watcher started",
		"dir", w.config.Dir,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pack watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("pack watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !isPackEvent(event) {
				continue
			}

			w.logger.Debug("pack file event", "path", event.Name, "op", event.Op.String())

			w.debounce.trigger(func() {
				w.logger.Info("reloading policy pack", "path", event.Name)
				if err := onReload(); err != nil {
					w.logger.Error("pack reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("pack watcher error", "error", err)
			// Keep watching despite errors.
		}
	}
}

// Stop stops a running watcher and waits for the event loop to release its
// resources. Safe to call repeatedly, and after the loop has already exited
// on its own.
func (w *PackWatcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return nil
	}

	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
	return nil
}

// isPackEvent filters events down to pack YAML writes. Chmod-only events
// and hidden/editor temp files are ignored.
func isPackEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return ext == ".yaml" || ext == ".yml" || ext == ".json"
}

// debouncer collects rapid events and fires the callback only after a quiet
// period.
type debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()
			if cb != nil {
				cb()
			}
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
