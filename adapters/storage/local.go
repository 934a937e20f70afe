// Package storage provides StorageAdapter implementations.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Skryldev/image-compressor/core"
	apperrors "github.com/Skryldev/image-compressor/errors"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("key not found")

const metaSuffix = ".meta.json"

// Local stores compressed images on the local filesystem.  Metadata is kept
// in a JSON side-car next to each object.
type Local struct {
	rootDir     string
	permissions os.FileMode
}

// NewLocal creates a Local storage adapter rooted at dir.
func NewLocal(dir string, perm os.FileMode) (*Local, error) {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: mkdir %s: %w", dir, err)
	}
	return &Local{rootDir: dir, permissions: perm}, nil
}

// absPath maps Bucket to a subdirectory and Path to a file inside it.  Keys
// cannot escape the root.
func (l *Local) absPath(key core.StorageKey) (string, error) {
	rel := filepath.Join(filepath.Clean("/"+key.Bucket), filepath.Clean("/"+key.Path))
	rel = strings.TrimPrefix(rel, string(filepath.Separator))
	if rel == "" || rel == "." {
		return "", fmt.Errorf("empty storage key %+v", key)
	}
	return filepath.Join(l.rootDir, rel), nil
}

func (l *Local) Put(ctx context.Context, key core.StorageKey, r io.Reader, meta map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put", err)
	}

	path, err := l.absPath(key)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.mkdir", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.permissions)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.open", err)
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.copy", err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.close", err)
	}

	if len(meta) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.meta", err)
	}
	if err := os.WriteFile(path+metaSuffix, data, l.permissions); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.put.meta", err)
	}
	return nil
}

func (l *Local) Get(ctx context.Context, key core.StorageKey) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get", err)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategoryStorage, "local.get", fmt.Errorf("%w: %v", ErrNotFound, key))
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.get.open", err)
	}
	return f, nil
}

// Meta returns the side-car metadata stored with key, or nil when none.
func (l *Local) Meta(ctx context.Context, key core.StorageKey) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.meta", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.meta", err)
	}
	data, err := os.ReadFile(path + metaSuffix)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.meta.read", err)
	}
	meta := map[string]string{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.meta.decode", err)
	}
	return meta, nil
}

func (l *Local) Delete(ctx context.Context, key core.StorageKey) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	if err := os.Remove(path + metaSuffix); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete.meta", err)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, key core.StorageKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
	}
	path, err := l.absPath(key)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists", err)
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Wrap(apperrors.CategoryStorage, "local.exists.stat", err)
}

var _ core.StorageAdapter = (*Local)(nil)
