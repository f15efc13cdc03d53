// Package storage stores snapshot archives and analysis artifacts in a local
// directory or a Tencent Cloud COS bucket.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/heap-trace/pkg/config"
)

// Storage is a flat key/object store.
type Storage interface {
	// Put writes the contents of r to key.
	Put(ctx context.Context, key string, r io.Reader) error

	// PutFile uploads a local file to key.
	PutFile(ctx context.Context, key string, localPath string) error

	// Fetch copies the object at key to localPath, creating parent directories.
	// A missing key yields an error matching errors.ErrNotFound.
	Fetch(ctx context.Context, key string, localPath string) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns a location for key that can be handed to users.
	URL(key string) string
}

// Type is a storage backend name.
type Type string

const (
	TypeLocal Type = "local"
	TypeCOS   Type = "cos"
)

// New creates the backend selected by cfg.
func New(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch Type(cfg.Type) {
	case TypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
			Endpoint:  cfg.Endpoint,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration. An empty type means local.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	switch Type(cfg.Type) {
	case TypeCOS:
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	case TypeLocal, "":
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
	return nil
}
