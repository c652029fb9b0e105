package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DebounceDelay collapses bursts of writes into one reload.
const DebounceDelay = 100 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path     string
	mu       sync.RWMutex
	config   *Config
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	ctx      context.Context
	cancel   context.CancelFunc
	errChan  chan error
	done     chan struct{}
}

// NewWatcher creates a watcher seeded with the already loaded config.
func NewWatcher(path string, initial *Config) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:    path,
		config:  initial,
		ctx:     ctx,
		cancel:  cancel,
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}
}

// OnChange registers a callback run after every successful reload.
// Register callbacks before calling Start.
func (w *Watcher) OnChange(cb func(*Config)) {
	w.onChange = append(w.onChange, cb)
}

// Config returns the latest valid config.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// Errors delivers reload failures. Errors are dropped while the channel is full.
func (w *Watcher) Errors() <-chan error {
	return w.errChan
}

// Start begins watching the directory that holds the config file, since
// editors often replace the file instead of writing it in place.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}
	w.watcher = watcher
	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(DebounceDelay, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errChan <- err:
	default:
	}
}

func (w *Watcher) reload() {
	if w.ctx.Err() != nil {
		return
	}
	cfg, err := LoadConfig(w.path)
	if err != nil {
		log.Warnf("Keeping previous config: %v", err)
		w.report(fmt.Errorf("reload config: %w", err))
		return
	}

	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()
	log.Debugf("Reloaded config from %s", w.path)

	for _, cb := range w.onChange {
		cb(cfg)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	w.watcher = nil
	return err
}
