// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import "sync"

// writers tracks which resources have a write in flight. A second writer
// fails fast instead of queueing.
type writers struct {
	mu     sync.Mutex
	active map[string]Name
}

func newWriters() *writers {
	return &writers{active: make(map[string]Name)}
}

// acquire claims path for tool. The returned release must be called once
// the write has finished.
func (w *writers) acquire(path string, tool Name) (release func(), err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if holder, busy := w.active[path]; busy {
		return nil, &ResourceBusyError{Tool: tool, Resource: path, Holder: holder}
	}
	w.active[path] = tool

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.active, path)
			w.mu.Unlock()
		})
	}, nil
}
