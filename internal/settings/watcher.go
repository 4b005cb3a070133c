package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the on-disk app-idle settings file and re-parses it into
// the owning Settings on every write, the same fsnotify-driven reload shape
// the teacher's config layer uses for its own hot-reload (see
// internal/runtime.HotReloadSystem in the retrieval pack), trimmed to a
// single file and a single callback rather than a full version/A-B-test
// framework this domain has no use for.
type Watcher struct {
	path     string
	settings *Settings
	onChange func(raw string)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	stop    chan struct{}
}

// NewWatcher creates a Watcher for path, applying re-parsed thresholds to
// settings and invoking onChange (if non-nil) with the raw string after
// every successful reload.
func NewWatcher(path string, settings *Settings, onChange func(raw string)) *Watcher {
	return &Watcher{path: path, settings: settings, onChange: onChange}
}

// Start begins watching the settings file's parent directory. Returns an
// error only if the underlying fsnotify watcher cannot be created or the
// directory cannot be watched; a missing settings file itself is not an
// error (the parser's defaults apply until the file appears).
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings: create file watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("settings: watch dir %s: %w", dir, err)
	}
	w.mu.Lock()
	w.watcher = fw
	w.stop = make(chan struct{})
	w.mu.Unlock()

	go w.loop(fw, w.stop)
	return nil
}

func (w *Watcher) loop(fw *fsnotify.Watcher, stop chan struct{}) {
	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			raw, err := os.ReadFile(w.path)
			if err != nil {
				continue
			}
			rawStr := string(raw)
			w.settings.Reload(rawStr)
			if w.onChange != nil {
				w.onChange(rawStr)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return
			}
		case <-stop:
			return
		}
	}
}

// Stop tears down the watcher. Idempotent.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	close(w.stop)
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
