package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"supermcp/pkg/logging"
)

// Watcher notifies a callback whenever one of the watched configuration
// files (or its containing directory, to catch editors that write via
// rename-over) changes on disk. It never reloads on its own; the caller
// decides when and whether to call Load again.
type Watcher struct {
	fsw      *fsnotify.Watcher
	paths    map[string]bool
	onChange func(path string)
	done     chan struct{}
}

// NewWatcher starts watching the directories containing each given path.
// Watching the directory rather than the file survives editors that replace
// the file via a temp-file rename rather than an in-place write.
func NewWatcher(paths []string, onChange func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		paths:    make(map[string]bool, len(paths)),
		onChange: onChange,
		done:     make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		w.paths[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			logging.Warn("config", "watcher: failed to watch directory %q: %v", dir, err)
		}
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if w.paths[abs] {
				w.onChange(abs)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("config", "watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher and releases its file descriptors.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
