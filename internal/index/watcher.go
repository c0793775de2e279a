// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// FILE WATCHER INTERFACE
// =============================================================================

// FileWatcher keeps the index in step with the filesystem after a full
// Index run.
type FileWatcher interface {
	// Watch starts watching for file changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher implements FileWatcher using fsnotify. Changes are
// collected in a pending set and applied once a path has been quiet for the
// debounce interval.
type FsnotifyWatcher struct {
	idx      *ContentIndex
	watcher  *fsnotify.Watcher
	debounce time.Duration
	mu       sync.Mutex
	pending  map[string]time.Time // path -> last change time
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewFsnotifyWatcher creates a new fsnotify-based watcher
func NewFsnotifyWatcher(idx *ContentIndex, debounce time.Duration) (*FsnotifyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FsnotifyWatcher{
		idx:      idx,
		watcher:  watcher,
		debounce: debounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch registers every non-ignored directory under each root.
func (fw *FsnotifyWatcher) Watch() error {
	for _, root := range fw.idx.roots {
		if err := fw.addRecursive(root); err != nil {
			return err
		}
	}

	go fw.processEvents()
	go fw.processPending()
	return nil
}

func (fw *FsnotifyWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != dir && fw.idx.shouldIgnore(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.idx.log.Debug().Err(err).Str("dir", path).Msg("cannot watch directory")
		}
		return nil
	})
}

func (fw *FsnotifyWatcher) processEvents() {
	defer func() {
		if r := recover(); r != nil {
			fw.idx.log.Error().Interface("panic", r).Msg("index watcher stopped")
		}
	}()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if fw.idx.shouldIgnore(filepath.Base(event.Name)) {
				continue
			}

			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addRecursive(event.Name); err != nil {
						time.Sleep(100 * time.Millisecond)
						_ = fw.addRecursive(event.Name)
					}
				}
			}

			// Write, Create, Remove and Rename all resolve the same way once
			// the path settles: UpdateFile re-reads it or drops it.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				fw.mu.Lock()
				fw.pending[event.Name] = time.Now()
				fw.mu.Unlock()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.idx.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (fw *FsnotifyWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-fw.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			fw.mu.Lock()
			var ready []string
			for path, changed := range fw.pending {
				if now.Sub(changed) >= fw.debounce {
					ready = append(ready, path)
					delete(fw.pending, path)
				}
			}
			fw.mu.Unlock()

			for _, path := range ready {
				if fw.ctx.Err() != nil {
					return
				}
				fw.apply(path)
			}
		}
	}
}

func (fw *FsnotifyWatcher) apply(path string) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return
	}
	if err != nil {
		err = fw.idx.RemoveFile(path)
	} else {
		err = fw.idx.UpdateFile(path)
	}
	if err != nil {
		fw.idx.log.Debug().Err(err).Str("path", path).Msg("incremental index update failed")
	}
}

// Close stops watching and releases resources
func (fw *FsnotifyWatcher) Close() error {
	fw.cancel()
	if fw.watcher != nil {
		return fw.watcher.Close()
	}
	return nil
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher implements FileWatcher by re-walking the roots on an
// interval and diffing modification times.
type PollingWatcher struct {
	idx      *ContentIndex
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	files    map[string]time.Time // path -> mod time
	mu       sync.Mutex
}

// NewPollingWatcher creates a new polling-based watcher
func NewPollingWatcher(idx *ContentIndex, interval time.Duration) *PollingWatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &PollingWatcher{
		idx:      idx,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		files:    make(map[string]time.Time),
	}
}

// Watch takes an initial snapshot and starts polling.
func (pw *PollingWatcher) Watch() error {
	snapshot, err := pw.scan()
	if err != nil {
		return err
	}
	pw.mu.Lock()
	pw.files = snapshot
	pw.mu.Unlock()

	go pw.poll()
	return nil
}

func (pw *PollingWatcher) scan() (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	for _, root := range pw.idx.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if path != root && pw.idx.shouldIgnore(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || pw.idx.shouldIgnore(d.Name()) {
				return nil
			}
			if info, err := d.Info(); err == nil {
				out[path] = info.ModTime()
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (pw *PollingWatcher) poll() {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return
		case <-ticker.C:
			pw.checkChanges()
		}
	}
}

func (pw *PollingWatcher) checkChanges() {
	current, err := pw.scan()
	if err != nil {
		pw.idx.log.Debug().Err(err).Msg("poll scan failed")
		return
	}

	pw.mu.Lock()
	previous := pw.files
	pw.files = current
	pw.mu.Unlock()

	for path, modTime := range current {
		if old, ok := previous[path]; !ok || !old.Equal(modTime) {
			if err := pw.idx.UpdateFile(path); err != nil {
				pw.idx.log.Debug().Err(err).Str("path", path).Msg("incremental index update failed")
			}
		}
	}
	for path := range previous {
		if _, ok := current[path]; !ok {
			_ = pw.idx.RemoveFile(path)
		}
	}
}

// Close stops watching
func (pw *PollingWatcher) Close() error {
	pw.cancel()
	return nil
}

// =============================================================================
// WATCHER FACTORY
// =============================================================================

// startWatcher starts fsnotify, falling back to polling.
func (idx *ContentIndex) startWatcher() error {
	var watcher FileWatcher

	fw, err := NewFsnotifyWatcher(idx, idx.config.WatchDebounce)
	if err == nil {
		if err = fw.Watch(); err == nil {
			watcher = fw
		} else {
			fw.Close()
		}
	}
	if watcher == nil {
		idx.log.Debug().Err(err).Msg("fsnotify unavailable, polling instead")
		pw := NewPollingWatcher(idx, 5*time.Second)
		if err := pw.Watch(); err != nil {
			return err
		}
		watcher = pw
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.db == nil || idx.watcher != nil {
		// Closed, or another Index run won the race.
		watcher.Close()
		return nil
	}
	idx.watcher = watcher
	return nil
}
