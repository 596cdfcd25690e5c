package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// RoleWatcher reloads role templates when the roles file changes on
// disk, so running orchestrators pick up catalog edits without a
// restart.
type RoleWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	done    chan struct{}
}

// WatchRoles watches the given roles file and invokes onChange with the
// reloaded templates after each successful reload. Parse failures are
// reported through onError and leave the previous templates in effect.
func WatchRoles(path string, onChange func([]RoleTemplate), onError func(error)) (*RoleWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory rather than the file: editors that rename
	// into place would otherwise drop the watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	rw := &RoleWatcher{
		watcher: watcher,
		path:    path,
		done:    make(chan struct{}),
	}

	go rw.loop(onChange, onError)
	return rw, nil
}

func (rw *RoleWatcher) loop(onChange func([]RoleTemplate), onError func(error)) {
	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(rw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			roles, err := LoadRoleTemplates(rw.path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(roles)
		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			if onError != nil {
				onError(err)
			}
		case <-rw.done:
			return
		}
	}
}

// Close stops watching the roles file.
func (rw *RoleWatcher) Close() error {
	close(rw.done)
	return rw.watcher.Close()
}
