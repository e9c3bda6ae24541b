package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/vanpelt/catnip-pty/internal/logger"
)

// Watcher reloads the config file when it changes on disk and hands the
// new value to onChange. Only settings that are safe to change at runtime
// (log level, coalesce window) are expected to be applied by the caller.
type Watcher struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	done     chan struct{}
	once     sync.Once
}

// NewWatcher starts watching path. The directory is watched rather than the
// file so editors that replace the file atomically are picked up.
func NewWatcher(path string, initial *Config, onChange func(*Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		config:   initial,
		watcher:  fsWatcher,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.watch()
	return w, nil
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *Watcher) watch() {
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("⚠️ config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Errorf("❌ Failed to reload config %s: %v", w.path, err)
		return
	}

	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()

	logger.Infof("🔧 Config reloaded from %s", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
