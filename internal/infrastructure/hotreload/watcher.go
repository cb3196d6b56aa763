// Package hotreload reloads templates and refreshes browsers during development
package hotreload

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatcherConfig selects which file changes are reported
type WatcherConfig struct {
	Extensions    []string
	DebounceDelay time.Duration
}

// DefaultWatcherConfig watches templates and static assets
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		Extensions:    []string{".html", ".css", ".js"},
		DebounceDelay: 250 * time.Millisecond,
	}
}

// Watcher reports file changes under a set of directories. Bursts of events
// are collapsed into one callback per debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	exts     map[string]bool
	delay    time.Duration
	onChange func(path string)
	logger   *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	done    chan struct{}
	once    sync.Once
}

// NewWatcher creates a watcher that calls onChange with the last changed path
func NewWatcher(config WatcherConfig, onChange func(path string), logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultWatcherConfig().DebounceDelay
	}

	exts := make(map[string]bool, len(config.Extensions))
	for _, ext := range config.Extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Watcher{
		watcher:  fsw,
		exts:     exts,
		delay:    config.DebounceDelay,
		onChange: onChange,
		logger:   logger.Named("hotreload"),
		done:     make(chan struct{}),
	}, nil
}

// Add watches root and every directory below it
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.logger.Debug("Watching directory", zap.String("path", path))
		return nil
	})
}

// Start runs the event loop until Close
func (w *Watcher) Start() {
	go w.loop()
}

// Close stops the watcher and drops any pending callback
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.Add(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
			}
			return
		}
	}
	if !w.relevant(event.Name) || event.Op == fsnotify.Chmod {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = event.Name
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	path := w.pending
	w.mu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.logger.Info("File changed", zap.String("path", path))
	w.onChange(path)
}

func (w *Watcher) relevant(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}
