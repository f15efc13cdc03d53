package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/heap-trace/pkg/errors"
)

// LocalStorage keeps objects as files below a base directory.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./storage"
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "create storage directory", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// BasePath returns the storage root.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// path resolves key below the base directory and rejects keys that escape it.
func (s *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "invalid storage key %q", key)
	}
	full := filepath.Join(s.basePath, clean)
	rel, err := filepath.Rel(s.basePath, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", apperrors.Newf(apperrors.CodeInvalidInput, "storage key %q escapes base path", key)
	}
	return full, nil
}

// Put writes r to key.
func (s *LocalStorage) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.path(key)
	if err != nil {
		return err
	}
	return writeFile(full, r)
}

// PutFile copies localPath to key.
func (s *LocalStorage) PutFile(ctx context.Context, key string, localPath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "open source file", err)
	}
	defer src.Close()
	return s.Put(ctx, key, src)
}

// Fetch copies key to localPath.
func (s *LocalStorage) Fetch(ctx context.Context, key string, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.path(key)
	if err != nil {
		return err
	}
	src, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.Newf(apperrors.CodeNotFound, "object %s not found", key)
		}
		return apperrors.Wrap(apperrors.CodeStorageError, "open object", err)
	}
	defer src.Close()
	return writeFile(localPath, src)
}

// Exists reports whether key is stored.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, apperrors.Wrap(apperrors.CodeStorageError, "stat object", err)
	}
	return true, nil
}

// URL returns the file path of key.
func (s *LocalStorage) URL(key string) string {
	full, err := s.path(key)
	if err != nil {
		return ""
	}
	return full
}

func writeFile(path string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "create directory", err)
	}
	dst, err := os.Create(path)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "create file", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return apperrors.Wrap(apperrors.CodeStorageError, "write file", err)
	}
	if err := dst.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "close file", err)
	}
	return nil
}
