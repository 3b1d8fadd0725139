// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package filewatcher notifies about changes to a set of files.
package filewatcher

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/open-policy-agent/wasm2luau/logging"
)

// OnChange is called with the path of a watched file that was created or
// written to.
type OnChange func(ctx context.Context, path string)

// FileWatcher watches files through their parent directories, so that files
// replaced by editors or build tools keep being tracked.
type FileWatcher struct {
	paths    map[string]struct{}
	onChange OnChange
	logger   logging.Logger

	mtx     sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileWatcher returns a watcher for paths. It does nothing until started.
func NewFileWatcher(paths []string, onChange OnChange, logger logging.Logger) *FileWatcher {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	w := &FileWatcher{
		paths:    make(map[string]struct{}, len(paths)),
		onChange: onChange,
		logger:   logger,
	}
	for _, path := range paths {
		w.paths[filepath.Clean(path)] = struct{}{}
	}
	return w
}

// Start begins watching. Events are delivered until ctx is cancelled or the
// watcher is closed.
func (w *FileWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for _, dir := range w.watchDirs() {
		w.logger.WithFields(map[string]any{"path": dir}).Debug("watching path")
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}

	w.mtx.Lock()
	w.watcher = watcher
	w.done = make(chan struct{})
	w.mtx.Unlock()

	go w.readWatcher(ctx, watcher, w.done)
	return nil
}

// Close stops watching and waits for the event loop to exit.
func (w *FileWatcher) Close() error {
	w.mtx.Lock()
	watcher, done := w.watcher, w.done
	w.watcher = nil
	w.mtx.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (w *FileWatcher) watchDirs() []string {
	dirs := []string{}
	for path := range w.paths {
		dir := filepath.Dir(path)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

func (w *FileWatcher) readWatcher(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error: %v", err)
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			path := filepath.Clean(evt.Name)
			if _, watched := w.paths[path]; !watched {
				continue
			}
			w.logger.WithFields(map[string]any{
				"event": evt.String(),
			}).Debug("Registered file event.")
			if evt.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.onChange(ctx, path)
			}
		}
	}
}
