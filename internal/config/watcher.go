package config

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/pkg/types"
)

// Watcher reloads configuration when a watched config file changes and
// hands the fresh config to a callback. Used by the serve command for
// hot reload of log level and provider credentials.
type Watcher struct {
	watcher   *fsnotify.Watcher
	directory string
	onReload  func(*types.Config)
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	mu        sync.Mutex
}

// NewWatcher creates a config watcher for the given working directory.
// onReload is called with the re-loaded config after each change.
func NewWatcher(directory string, onReload func(*types.Config)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch directories rather than files: editors replace config files
	// on save, which drops a file-level watch.
	dirs := []string{GetPaths().Config}
	if directory != "" {
		dirs = append(dirs, directory)
	}
	watching := 0
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			logging.Debug().Str("dir", dir).Err(err).Msg("config watch skipped")
			continue
		}
		watching++
	}
	if watching == 0 {
		w.Close()
		return nil, nil
	}

	return &Watcher{
		watcher:   w,
		directory: directory,
		onReload:  onReload,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Start begins watching for config changes.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()
	go w.run()
}

func (w *Watcher) run() {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isConfigFile(ev.Name) {
				continue
			}
			cfg, err := Load(w.directory)
			if err != nil {
				logging.Warn().Err(err).Msg("config reload failed")
				continue
			}
			logging.Info().Str("file", ev.Name).Msg("config reloaded")
			if w.onReload != nil {
				w.onReload(cfg)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Stop terminates the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		w.watcher.Close()
		return
	}
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
	w.started = false
}

func isConfigFile(path string) bool {
	name := filepath.Base(path)
	return name == "parley.json" || name == "parley.jsonc" ||
		strings.HasSuffix(name, ".parley.json")
}
