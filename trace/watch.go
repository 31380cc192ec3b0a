// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package trace

import (
	"context"
	"path/filepath"

	"github.com/aristanetworks/fsnotify"
	"github.com/aristanetworks/glog"
)

// WatchDir watches dir for newly written trace files and emits their
// paths on the returned channel, supplementing the CSV-file trace
// source with the live-ingestion path a trace-driven deployment
// needs: a directory that a collector drops completed trace files
// into. The channel is closed, and the watcher released, when ctx is
// done or the watch cannot continue.
func WatchDir(ctx context.Context, dir string) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	paths := make(chan string)
	go func() {
		defer close(paths)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				if filepath.Ext(ev.Name) != ".csv" {
					continue
				}
				select {
				case paths <- ev.Name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				glog.Errorf("trace: watch %s: %v", dir, err)
			}
		}
	}()
	return paths, nil
}
