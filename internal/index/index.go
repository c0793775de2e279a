// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/jeranaias/rigrun-gateway/internal/util"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotIndexed    = errors.New("workspace not indexed")
	ErrIndexing      = errors.New("indexing in progress")
	ErrDatabaseError = errors.New("database error")
	ErrInvalidPath   = errors.New("invalid path")
)

// =============================================================================
// CONTENT INDEX
// =============================================================================

// ContentIndex keeps the text of every workspace file in SQLite FTS5 for
// fast whole-workspace content and path lookups.
type ContentIndex struct {
	db      *sql.DB
	watcher FileWatcher
	roots   []string
	config  *Config
	log     zerolog.Logger
	mu      sync.RWMutex

	// Indexing state
	indexing    bool
	indexingMu  sync.Mutex
	lastIndexed time.Time
	fileCount   int
}

// Config holds index configuration
type Config struct {
	// Roots are the workspace roots to index (absolute, canonical)
	Roots []string

	// DatabasePath is where to store the SQLite database
	DatabasePath string

	// MaxFileSize is the maximum file size to index (bytes)
	MaxFileSize int64

	// IgnorePatterns are glob patterns matched against base names
	IgnorePatterns []string

	// EnableWatch enables file watching for incremental updates
	EnableWatch bool

	// WatchDebounce is the debounce duration for file change events
	WatchDebounce time.Duration

	Logger zerolog.Logger
}

// DefaultConfig returns default configuration
func DefaultConfig(dbPath string, roots ...string) *Config {
	return &Config{
		Roots:        roots,
		DatabasePath: dbPath,
		MaxFileSize:    util.MaxContentFileSize,
		IgnorePatterns: append([]string(nil), util.IgnoreNames...),
		EnableWatch:   true,
		WatchDebounce: 500 * time.Millisecond,
		Logger:        zerolog.Nop(),
	}
}

// New opens (or creates) the index database.
func New(config *Config) (*ContentIndex, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if len(config.Roots) == 0 {
		return nil, fmt.Errorf("%w: no roots", ErrInvalidPath)
	}
	for _, root := range config.Roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, root)
		}
	}

	if err := os.MkdirAll(filepath.Dir(config.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000", // 64MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	idx := &ContentIndex{
		db:     db,
		roots:  append([]string(nil), config.Roots...),
		config: config,
		log:    config.Logger.With().Str("component", "index").Logger(),
	}

	if err := idx.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := idx.loadStats(); err != nil {
		idx.log.Debug().Err(err).Msg("no previous index statistics")
	}

	return idx, nil
}

func (idx *ContentIndex) initSchema() error {
	var version string
	err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err == nil && version != strconv.Itoa(SchemaVersion) {
		// The index is a rebuildable cache; older layouts are dropped.
		idx.log.Info().Str("from", version).Int("to", SchemaVersion).Msg("index schema changed, rebuilding")
		if _, err := idx.db.Exec(DropSchema); err != nil {
			return err
		}
	}
	if _, err := idx.db.Exec(Schema); err != nil {
		return err
	}
	_, err = idx.db.Exec(InitMetadata)
	return err
}

// Close stops the watcher and closes the database.
func (idx *ContentIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.watcher != nil {
		idx.watcher.Close()
		idx.watcher = nil
	}
	if idx.db != nil {
		err := idx.db.Close()
		idx.db = nil
		return err
	}
	return nil
}

// =============================================================================
// INDEXING
// =============================================================================

type fileRow struct {
	id      int64
	modTime int64
	size    int64
	hash    []byte
}

// Index walks every root and brings the index up to date. Unchanged files
// (same size and mod time) are skipped; files whose content hash is
// unchanged only have their metadata refreshed. Rows for files that no
// longer exist are removed. ctx is checked between files.
func (idx *ContentIndex) Index(ctx context.Context) error {
	idx.indexingMu.Lock()
	if idx.indexing {
		idx.indexingMu.Unlock()
		return ErrIndexing
	}
	idx.indexing = true
	idx.indexingMu.Unlock()

	defer func() {
		idx.indexingMu.Lock()
		idx.indexing = false
		idx.indexingMu.Unlock()
	}()

	startTime := time.Now()

	existing, err := idx.loadRows(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool, len(existing))
	var updated int
	for _, root := range idx.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // Skip unreadable entries
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != root && idx.shouldIgnore(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || idx.shouldIgnore(d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			row, ok := existing[path]
			changed, indexed, err := idx.indexFile(tx, path, root, info, row, ok)
			if err != nil {
				idx.log.Debug().Err(err).Str("path", path).Msg("skipping file")
				return nil
			}
			if indexed {
				seen[path] = true
			}
			if changed {
				updated++
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	var removed int
	for path, row := range existing {
		if seen[path] {
			continue
		}
		if _, err := tx.Exec("DELETE FROM files WHERE id = ?", row.id); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		removed++
	}

	if _, err := tx.Exec("UPDATE metadata SET value = ? WHERE key = 'last_full_index'",
		strconv.FormatInt(startTime.Unix(), 10)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	idx.mu.Lock()
	idx.lastIndexed = startTime
	idx.fileCount = len(seen)
	startWatch := idx.config.EnableWatch && idx.watcher == nil
	idx.mu.Unlock()

	idx.log.Info().
		Int("files", len(seen)).
		Int("updated", updated).
		Int("removed", removed).
		Dur("duration", time.Since(startTime)).
		Msg("workspace indexed")

	if startWatch {
		if err := idx.startWatcher(); err != nil {
			idx.log.Warn().Err(err).Msg("file watching unavailable")
		}
	}
	return nil
}

func (idx *ContentIndex) loadRows(ctx context.Context) (map[string]fileRow, error) {
	rows, err := idx.db.QueryContext(ctx, "SELECT id, path, mod_time, size, hash FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]fileRow)
	for rows.Next() {
		var r fileRow
		var path string
		if err := rows.Scan(&r.id, &path, &r.modTime, &r.size, &r.hash); err != nil {
			return nil, err
		}
		out[path] = r
	}
	return out, rows.Err()
}

// indexFile brings one file's row up to date. indexed reports whether the
// file belongs in the index at all; changed whether its body was written.
func (idx *ContentIndex) indexFile(tx *sql.Tx, path, root string, info os.FileInfo, row fileRow, exists bool) (changed, indexed bool, err error) {
	if info.Size() > idx.config.MaxFileSize || util.IsBinaryExt(path) {
		return false, false, nil
	}
	modTime := info.ModTime().UnixNano()
	if exists && row.modTime == modTime && row.size == info.Size() {
		return false, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, false, err
	}
	if util.IsBinary(content) {
		return false, false, nil
	}
	sum := blake2b.Sum256(content)
	now := time.Now().Unix()

	if exists {
		if _, err := tx.Exec("UPDATE files SET mod_time = ?, size = ?, hash = ?, indexed_at = ? WHERE id = ?",
			modTime, info.Size(), sum[:], now, row.id); err != nil {
			return false, false, err
		}
		if bytes.Equal(row.hash, sum[:]) {
			return false, true, nil
		}
		if _, err := tx.Exec("DELETE FROM contents_fts WHERE rowid = ?", row.id); err != nil {
			return false, false, err
		}
		if _, err := tx.Exec("INSERT INTO contents_fts(rowid, body) VALUES (?, ?)", row.id, string(content)); err != nil {
			return false, false, err
		}
		return true, true, nil
	}

	result, err := tx.Exec(`
		INSERT INTO files (path, root, mod_time, size, hash, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, path, root, modTime, info.Size(), sum[:], now)
	if err != nil {
		return false, false, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return false, false, err
	}
	if _, err := tx.Exec("INSERT INTO contents_fts(rowid, body) VALUES (?, ?)", id, string(content)); err != nil {
		return false, false, err
	}
	return true, true, nil
}

// UpdateFile re-indexes a single file, or removes it when it no longer
// exists or no longer qualifies.
func (idx *ContentIndex) UpdateFile(path string) error {
	root, ok := idx.rootOf(path)
	if !ok {
		return fmt.Errorf("%w: %s is outside the indexed roots", ErrInvalidPath, path)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.db == nil {
		return ErrDatabaseError
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || idx.ignoredPath(root, path) {
		return idx.removeLocked(path)
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var row fileRow
	exists := true
	err = tx.QueryRow("SELECT id, mod_time, size, hash FROM files WHERE path = ?", path).
		Scan(&row.id, &row.modTime, &row.size, &row.hash)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return err
	}

	_, indexed, err := idx.indexFile(tx, path, root, info, row, exists)
	if err != nil {
		return err
	}
	if !indexed && exists {
		if _, err := tx.Exec("DELETE FROM files WHERE id = ?", row.id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveFile drops a file (or every file under a removed directory).
func (idx *ContentIndex) RemoveFile(path string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.db == nil {
		return ErrDatabaseError
	}
	return idx.removeLocked(path)
}

func (idx *ContentIndex) removeLocked(path string) error {
	prefix := path + string(filepath.Separator)
	_, err := idx.db.Exec("DELETE FROM files WHERE path = ? OR substr(path, 1, ?) = ?",
		path, len(prefix), prefix)
	return err
}

func (idx *ContentIndex) rootOf(path string) (string, bool) {
	for _, root := range idx.roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return root, true
		}
	}
	return "", false
}

// ignoredPath reports whether any element of path below root is ignored.
func (idx *ContentIndex) ignoredPath(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return true
	}
	for dir := rel; dir != "." && dir != string(filepath.Separator) && dir != ""; dir = filepath.Dir(dir) {
		if idx.shouldIgnore(filepath.Base(dir)) {
			return true
		}
	}
	return false
}

// shouldIgnore checks if a file/directory name should be ignored
func (idx *ContentIndex) shouldIgnore(name string) bool {
	for _, pattern := range idx.config.IgnorePatterns {
		if name == pattern {
			return true
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func (idx *ContentIndex) loadStats() error {
	var lastIndexed string
	if err := idx.db.QueryRow("SELECT value FROM metadata WHERE key = 'last_full_index'").Scan(&lastIndexed); err != nil {
		return err
	}
	if secs, err := strconv.ParseInt(lastIndexed, 10, 64); err == nil && secs > 0 {
		idx.lastIndexed = time.Unix(secs, 0)
	}
	return idx.db.QueryRow("SELECT COUNT(*) FROM files").Scan(&idx.fileCount)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats describes the index.
type Stats struct {
	FileCount    int
	LastIndexed  time.Time
	IsIndexing   bool
	Watching     bool
	DatabaseSize int64
}

// Stats returns current index statistics
func (idx *ContentIndex) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	idx.indexingMu.Lock()
	indexing := idx.indexing
	idx.indexingMu.Unlock()

	var dbSize int64
	if info, err := os.Stat(idx.config.DatabasePath); err == nil {
		dbSize = info.Size()
	}

	return Stats{
		FileCount:    idx.fileCount,
		LastIndexed:  idx.lastIndexed,
		IsIndexing:   indexing,
		Watching:     idx.watcher != nil,
		DatabaseSize: dbSize,
	}
}

// IsIndexed returns true once a full index has completed.
func (idx *ContentIndex) IsIndexed() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return !idx.lastIndexed.IsZero()
}
