package fetcher

import (
	"context"
	"time"

	"github.com/heap-trace/internal/storage"
	"github.com/heap-trace/pkg/config"
)

// StorageSource reads archives from a storage bucket or directory.
type StorageSource struct {
	store  storage.Storage
	naming Naming
}

// NewStorageSource wraps store.
func NewStorageSource(store storage.Storage, cfg *config.SourceConfig) *StorageSource {
	return &StorageSource{
		store:  store,
		naming: namingOr(cfg.ArchivePrefix, cfg.ArchiveSuffix),
	}
}

// Latest implements Source.
func (s *StorageSource) Latest(ctx context.Context, now time.Time) (string, error) {
	for _, name := range s.naming.Candidates(now) {
		ok, err := s.store.Exists(ctx, name)
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
	}
	return "", ErrNoSnapshot
}

// Download implements Source.
func (s *StorageSource) Download(ctx context.Context, name, dest string) error {
	return s.store.Fetch(ctx, name, dest)
}
