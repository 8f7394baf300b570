package poll

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/avivsinai/a2a-mailbox/internal/fsq"
)

// inboxWatcher signals C whenever a message file appears in a directory.
// Signals coalesce: C holds at most one pending wake-up.
type inboxWatcher struct {
	C <-chan struct{}

	watcher *fsnotify.Watcher
}

func watchInbox(dir string) (*inboxWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) || !fsq.IsMessageName(filepath.Base(event.Name)) {
					continue
				}
				select {
				case c <- struct{}{}:
				default:
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return &inboxWatcher{C: c, watcher: watcher}, nil
}

func (w *inboxWatcher) Close() error {
	return w.watcher.Close()
}
