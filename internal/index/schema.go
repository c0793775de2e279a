// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 3
)

// Schema is the SQLite schema for the workspace content index. File bodies
// live in an FTS5 table keyed by the files row id. The trigram tokenizer
// lets MATCH find substrings that start or end mid-word.
const Schema = `
-- Metadata table for schema version and index state
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Files table: tracks indexed files with modification times and content hashes
CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,   -- absolute path
    root TEXT NOT NULL,          -- workspace root holding the file
    mod_time INTEGER NOT NULL,   -- Unix nanoseconds
    size INTEGER NOT NULL,
    hash BLOB NOT NULL,          -- BLAKE2b-256 of the content
    indexed_at INTEGER NOT NULL  -- Unix timestamp
);

CREATE INDEX IF NOT EXISTS idx_files_root ON files(root);

-- Full-text table for file bodies; rowid = files.id
CREATE VIRTUAL TABLE IF NOT EXISTS contents_fts USING fts5(
    body,
    tokenize='trigram'
);

-- Keep the FTS table in step with file deletions
CREATE TRIGGER IF NOT EXISTS files_ad AFTER DELETE ON files BEGIN
    DELETE FROM contents_fts WHERE rowid = old.id;
END;
`

// InitMetadata initializes the metadata table with default values
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '3');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
INSERT OR IGNORE INTO metadata (key, value) VALUES ('last_full_index', '0');
`

// DropSchema removes every index table so Schema can recreate them.
const DropSchema = `
DROP TRIGGER IF EXISTS files_ad;
DROP TABLE IF EXISTS contents_fts;
DROP TABLE IF EXISTS files;
DROP TABLE IF EXISTS metadata;
`
