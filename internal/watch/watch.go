// Package watch reports changes to the XML files of a corpus directory.
//
// Events are filtered to *.xml entries directly inside the directory and
// coalesced over a debounce window, so an editor's write-rename-chmod
// sequence produces a single notification.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/internal/logging"
)

// DefaultDebounce is the coalescing window used when none is given.
const DefaultDebounce = 200 * time.Millisecond

// Change is one coalesced batch of file changes.
type Change struct {
	// Names are the base names of the changed files, sorted.
	Names []string
	Time  time.Time
}

// Watcher watches one corpus directory.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onChange func(Change)

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	closed  bool
}

// New creates a watcher for dir. onChange is called from the watcher's
// goroutine once per debounced batch.
func New(dir string, debounce time.Duration, onChange func(Change)) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]bool),
	}, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()
	logging.Info("corpus_watch_started", "dir", w.dir, "debounce", w.debounce.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn("corpus_watch_error", "dir", w.dir, "error", err.Error())
		}
	}
}

// Relevant reports whether an event on name can change the corpus.
func Relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return filepath.Ext(event.Name) == corpus.Extension
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !Relevant(event) {
		return
	}
	logging.Debug("corpus_event", "op", event.Op.String(), "file", filepath.Base(event.Name))

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending[filepath.Base(event.Name)] = true
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	names := make([]string, 0, len(w.pending))
	for name := range w.pending {
		names = append(names, name)
	}
	w.pending = make(map[string]bool)
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(names)
	logging.CorpusChanged(w.dir, names)
	w.onChange(Change{Names: names, Time: time.Now()})
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}
