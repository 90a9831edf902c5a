package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/relix/internal/logfields"
)

// debounceWindow is how long the watcher waits after the last filesystem
// event before requesting a rebuild, so bursts of writes (editor saves,
// rsync of a release directory) trigger one run.
const debounceWindow = 2 * time.Second

// SourceWatcher requests a rebuild when the release source changes on disk.
type SourceWatcher struct {
	inner   *fsnotify.Watcher
	target  string
	file    string // non-empty when watching a single file inside target
	request func(reason string)

	stop chan struct{}
	done chan struct{}
}

// NewSourceWatcher watches path, which may be a manifest file or a
// release directory. For a file the containing directory is watched,
// since editors replace files rather than write them in place.
func NewSourceWatcher(path string, request func(reason string)) (*SourceWatcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat watch path %s: %w", path, err)
	}

	target := path
	file := ""
	if !info.IsDir() {
		target = filepath.Dir(path)
		file = filepath.Base(path)
	}

	inner, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := inner.Add(target); err != nil {
		_ = inner.Close()
		return nil, fmt.Errorf("watch %s: %w", target, err)
	}

	return &SourceWatcher{
		inner:   inner,
		target:  target,
		file:    file,
		request: request,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start launches the event loop.
func (w *SourceWatcher) Start() {
	go w.loop()
	slog.Info("Watching source for changes", logfields.Path(w.target))
}

// Stop ends the event loop and releases the watcher. Blocks until the
// loop has exited.
func (w *SourceWatcher) Stop() {
	close(w.stop)
	<-w.done
}

func (w *SourceWatcher) loop() {
	defer close(w.done)
	defer w.inner.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.inner.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Source change detected", logfields.Path(event.Name), "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				timer.Reset(debounceWindow)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.request("source-change")

		case err, ok := <-w.inner.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}

// relevant filters out events for unrelated files when watching a single
// manifest inside its directory.
func (w *SourceWatcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	if w.file == "" {
		return true
	}
	return filepath.Base(event.Name) == w.file
}
