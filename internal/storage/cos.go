package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/tencentyun/cos-go-sdk-v5"

	apperrors "github.com/heap-trace/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"
	// Endpoint overrides the derived bucket URL, e.g. for private endpoints.
	Endpoint string
}

// COSStorage stores objects in a Tencent Cloud COS bucket.
type COSStorage struct {
	client    *cos.Client
	bucketURL *url.URL
}

// NewCOSStorage creates a COS client for the configured bucket.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	rawURL := cfg.Endpoint
	if rawURL == "" {
		rawURL = fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain)
	}
	bucketURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{client: client, bucketURL: bucketURL}, nil
}

// Put uploads r to key.
func (s *COSStorage) Put(ctx context.Context, key string, r io.Reader) error {
	if _, err := s.client.Object.Put(ctx, key, r, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "upload to COS", err)
	}
	return nil
}

// PutFile uploads a local file to key.
func (s *COSStorage) PutFile(ctx context.Context, key string, localPath string) error {
	if _, err := s.client.Object.PutFromFile(ctx, key, localPath, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "upload file to COS", err)
	}
	return nil
}

// Fetch downloads key to localPath.
func (s *COSStorage) Fetch(ctx context.Context, key string, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "create directory", err)
	}
	if _, err := s.client.Object.GetToFile(ctx, key, localPath, nil); err != nil {
		if cos.IsNotFoundError(err) {
			return apperrors.Wrap(apperrors.CodeNotFound, "object "+key+" not found", err)
		}
		return apperrors.Wrap(apperrors.CodeStorageError, "download from COS", err)
	}
	return nil
}

// Exists checks if an object exists at key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeStorageError, "check existence in COS", err)
	}
	return ok, nil
}

// URL returns the object URL for key.
func (s *COSStorage) URL(key string) string {
	return s.bucketURL.JoinPath(key).String()
}
