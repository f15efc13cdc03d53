package storage

import (
	"context"
	"hash/crc64"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heap-trace/pkg/config"
)

func TestNewCOSStorage_Validation(t *testing.T) {
	t.Run("MissingBucket", func(t *testing.T) {
		cfg := &COSConfig{
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		storage, err := NewCOSStorage(cfg)
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingRegion", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket:    "test-bucket",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		storage, err := NewCOSStorage(cfg)
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket: "test-bucket",
			Region: "ap-guangzhou",
		}

		storage, err := NewCOSStorage(cfg)
		assert.Error(t, err)
		assert.Nil(t, storage)
		assert.Contains(t, err.Error(), "credentials are required")
	})

	t.Run("ValidConfig", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		storage, err := NewCOSStorage(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, storage)
	})
}

func TestCOSStorage_URL(t *testing.T) {
	t.Run("DerivedFromBucket", func(t *testing.T) {
		storage, err := NewCOSStorage(&COSConfig{
			Bucket:    "my-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		})
		require.NoError(t, err)

		expected := "https://my-bucket.cos.ap-guangzhou.myqcloud.com/path/to/file.txt"
		assert.Equal(t, expected, storage.URL("path/to/file.txt"))
	})

	t.Run("Endpoint", func(t *testing.T) {
		storage, err := NewCOSStorage(&COSConfig{
			Bucket:    "my-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
			Endpoint:  "http://cos.internal:8080",
		})
		require.NoError(t, err)
		assert.Equal(t, "http://cos.internal:8080/target.json", storage.URL("target.json"))
	})
}

// fakeCOS is an in-memory bucket answering the object calls the storage uses.
type fakeCOS struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeCOS(t *testing.T) (*fakeCOS, *COSStorage) {
	t.Helper()
	fake := &fakeCOS{objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	storage, err := NewCOSStorage(&COSConfig{
		Bucket:    "test-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
		Endpoint:  srv.URL,
	})
	require.NoError(t, err)
	return fake, storage
}

func (f *fakeCOS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.objects[key] = data
		w.Header().Set("x-cos-hash-crc64ecma", checksum(data))
		w.WriteHeader(http.StatusOK)
	case http.MethodHead, http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("x-cos-hash-crc64ecma", checksum(data))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeCOS) get(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

func (f *fakeCOS) set(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func checksum(data []byte) string {
	return strconv.FormatUint(crc64.Checksum(data, crc64.MakeTable(crc64.ECMA)), 10)
}

func TestCOSStorage_PutAndExists(t *testing.T) {
	ctx := context.Background()
	fake, storage := newFakeCOS(t)

	ok, err := storage.Exists(ctx, "reports/target.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, storage.Put(ctx, "reports/target.json", strings.NewReader(`{"id":7}`)))
	assert.Equal(t, `{"id":7}`, string(fake.get("reports/target.json")))

	ok, err = storage.Exists(ctx, "reports/target.json")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCOSStorage_Fetch(t *testing.T) {
	ctx := context.Background()
	fake, storage := newFakeCOS(t)
	fake.set("heapsnapshots-2024-01-02.tar.gz", []byte("archive-bytes"))

	dest := filepath.Join(t.TempDir(), "download", "heapsnapshots-2024-01-02.tar.gz")
	require.NoError(t, storage.Fetch(ctx, "heapsnapshots-2024-01-02.tar.gz", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive-bytes", string(data))

	err = storage.Fetch(ctx, "absent.tar.gz", filepath.Join(t.TempDir(), "absent.tar.gz"))
	assert.Error(t, err)
}

func TestNew_COS(t *testing.T) {
	cfg := &config.StorageConfig{
		Type:      "cos",
		Bucket:    "test-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
	}

	s, err := New(cfg)
	require.NoError(t, err)
	_, ok := s.(*COSStorage)
	assert.True(t, ok)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"NilConfig", nil, "storage config is nil"},
		{"COSMissingBucket", &config.StorageConfig{Type: "cos", Region: "ap-guangzhou"}, "COS bucket is required"},
		{"COSMissingRegion", &config.StorageConfig{Type: "cos", Bucket: "b"}, "COS region is required"},
		{"COSMissingCredentials", &config.StorageConfig{Type: "cos", Bucket: "b", Region: "r"}, "COS credentials are required"},
		{"LocalMissingPath", &config.StorageConfig{Type: "local"}, "local storage path is required"},
		{"EmptyTypeMeansLocal", &config.StorageConfig{}, "local storage path is required"},
		{"Unsupported", &config.StorageConfig{Type: "s3"}, "unsupported storage type"},
		{"ValidLocal", &config.StorageConfig{Type: "local", LocalPath: "/tmp/storage"}, ""},
		{"ValidCOS", &config.StorageConfig{Type: "cos", Bucket: "b", Region: "r", SecretID: "id", SecretKey: "key"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
