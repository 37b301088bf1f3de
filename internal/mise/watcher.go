package mise

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/miseq/internal/logging"
)

// WatchedFiles are the config files mise reads tasks from, relative to the
// project directory.
var WatchedFiles = []string{"mise.toml", ".mise.toml", "mise.local.toml", ".mise.local.toml"}

// WatchedDirs hold file tasks, relative to the project directory.
var WatchedDirs = []string{".mise/tasks", "mise-tasks", ".mise-tasks", "mise/tasks", ".config/mise/tasks"}

// Watcher reports changes to task definitions in a project directory.
// Bursts of events are coalesced into one callback per debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	onChange func()
	logger   *logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewWatcher watches dir (the current directory if empty). onChange is
// called from the watcher's goroutine.
func NewWatcher(dir string, debounce time.Duration, onChange func(), logger *logging.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = "."
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	w := &Watcher{
		watcher:  fw,
		root:     dir,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.WithComponent("watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	// The project directory is watched rather than the files so that
	// editors that save by rename and newly created mise.toml are seen.
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	for _, d := range WatchedDirs {
		w.watchTree(filepath.Join(dir, d))
	}
	return w, nil
}

func (w *Watcher) watchTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = w.watcher.Add(path)
		}
		return nil
	})
}

// Start begins delivering change notifications.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
	})
	<-w.doneCh
}

// relevant reports whether an event path affects task definitions.
func (w *Watcher) relevant(name string) bool {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if slices.Contains(WatchedFiles, rel) {
		return true
	}
	for _, d := range WatchedDirs {
		if rel == d || len(rel) > len(d) && rel[:len(d)+1] == d+"/" {
			return true
		}
	}
	return false
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	timer := time.NewTimer(0)
	<-timer.C
	pending := false

	for {
		select {
		case <-w.stopCh:
			timer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
					w.watchTree(ev.Name)
				}
			}
			pending = true
			timer.Reset(w.debounce)

		case <-timer.C:
			if pending {
				pending = false
				w.logger.Debug("task definitions changed")
				w.onChange()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err.Error())
		}
	}
}
