// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/rigrun-gateway/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileInfo describes one file-system entry.
type FileInfo struct {
	Path    string
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// FileStore is the file-content collaborator. Paths are absolute and
// already sandboxed. Missing resources wrap ErrNotFound.
type FileStore interface {
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)
	Create(ctx context.Context, path string, folder bool) error
	Delete(ctx context.Context, path string, recursive bool) error
}

var (
	// ErrBinaryFile is returned when reading a file that is not text.
	ErrBinaryFile = errors.New("file appears to be binary")

	// ErrFileTooLarge is returned when a file exceeds the store's limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrProtectedFile is returned when writing a credential-like file.
	ErrProtectedFile = errors.New("file is protected")

	// ErrExists is returned by Create for an existing path.
	ErrExists = errors.New("already exists")

	// ErrNotEmpty is returned by a non-recursive Delete of a populated folder.
	ErrNotEmpty = errors.New("folder is not empty; set is_recursive to delete it")
)

// ProtectedPatterns are base-name globs that the local store refuses to
// overwrite or delete.
var ProtectedPatterns = []string{
	".env", ".env.*", "*.pem", "*.key", "*.p12", "*.pfx",
	"id_rsa", "id_ed25519", "id_ecdsa", "id_dsa",
	".npmrc", ".pypirc", ".netrc", "credentials.json",
}

// DefaultMaxFileBytes bounds a single read.
const DefaultMaxFileBytes = 10 * 1024 * 1024

// LocalFileStore is a FileStore over the local disk.
type LocalFileStore struct {
	// MaxFileBytes bounds ReadFile; zero means DefaultMaxFileBytes.
	MaxFileBytes int64

	// AllowProtected disables the ProtectedPatterns check.
	AllowProtected bool
}

// NewLocalFileStore returns a LocalFileStore with default limits.
func NewLocalFileStore() *LocalFileStore {
	return &LocalFileStore{MaxFileBytes: DefaultMaxFileBytes}
}

func (s *LocalFileStore) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, wrapFSError(path, err)
	}
	return fileInfo(path, info), nil
}

func (s *LocalFileStore) ReadFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", wrapFSError(path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	limit := s.MaxFileBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	if info.Size() > limit {
		return "", fmt.Errorf("%w: %s is %s (max %s)", ErrFileTooLarge, path,
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(limit)))
	}
	if util.IsBinaryExt(path) {
		return "", fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", wrapFSError(path, err)
	}
	if util.IsBinary(data) {
		return "", fmt.Errorf("%w: %s", ErrBinaryFile, path)
	}
	return string(data), nil
}

func (s *LocalFileStore) WriteFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkProtected(path); err != nil {
		return err
	}
	perm := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}
	return util.AtomicWriteFile(path, []byte(content), perm)
}

// ReadDir lists path with folders first, then by name.
func (s *LocalFileStore) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, wrapFSError(path, err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fi := fileInfo(filepath.Join(path, e.Name()), info)
		if e.Type()&fs.ModeSymlink != 0 {
			// Report the target kind.
			if target, err := os.Stat(fi.Path); err == nil {
				fi.IsDir = target.IsDir()
			}
		}
		out = append(out, fi)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *LocalFileStore) Create(ctx context.Context, path string, folder bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s %w", path, ErrExists)
	}
	if folder {
		return os.MkdirAll(path, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s %w", path, ErrExists)
		}
		return err
	}
	return f.Close()
}

func (s *LocalFileStore) Delete(ctx context.Context, path string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return wrapFSError(path, err)
	}
	if err := s.checkProtected(path); err != nil {
		return err
	}
	if !info.IsDir() {
		return os.Remove(path)
	}
	if recursive {
		return os.RemoveAll(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return wrapFSError(path, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s: %w", path, ErrNotEmpty)
	}
	return os.Remove(path)
}

func (s *LocalFileStore) checkProtected(path string) error {
	if s.AllowProtected {
		return nil
	}
	base := filepath.Base(path)
	for _, pattern := range ProtectedPatterns {
		if ok, _ := filepath.Match(pattern, strings.ToLower(base)); ok {
			return fmt.Errorf("%w: %s matches %q", ErrProtectedFile, base, pattern)
		}
	}
	return nil
}

func fileInfo(path string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:    path,
		Name:    info.Name(),
		IsDir:   info.IsDir(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func wrapFSError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}
