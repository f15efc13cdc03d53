package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/heap-trace/pkg/config"
	apperrors "github.com/heap-trace/pkg/errors"
)

// HTTPSource reads archives from a plain directory listing, as served by
// nginx autoindex or similar.
type HTTPSource struct {
	baseURL string
	naming  Naming
	client  *http.Client
}

// NewHTTPSource creates a source for cfg.SnapshotURL.
func NewHTTPSource(cfg *config.SourceConfig) (*HTTPSource, error) {
	if cfg.SnapshotURL == "" {
		return nil, apperrors.New(apperrors.CodeConfigError, "snapshot url is required for http source")
	}
	base := cfg.SnapshotURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &HTTPSource{
		baseURL: base,
		naming:  namingOr(cfg.ArchivePrefix, cfg.ArchiveSuffix),
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Listing fetches the index page.
func (s *HTTPSource) Listing(ctx context.Context) (string, error) {
	body, err := s.get(ctx, s.baseURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDownloadError, "read snapshot listing", err)
	}
	return string(data), nil
}

// MatchLatest finds the archive linked from listing for today, else yesterday.
func (s *HTTPSource) MatchLatest(listing string, now time.Time) (string, error) {
	for _, name := range s.naming.Candidates(now) {
		if strings.Contains(listing, `<a href="`+name+`">`) {
			return name, nil
		}
	}
	return "", ErrNoSnapshot
}

// Latest implements Source.
func (s *HTTPSource) Latest(ctx context.Context, now time.Time) (string, error) {
	listing, err := s.Listing(ctx)
	if err != nil {
		return "", err
	}
	return s.MatchLatest(listing, now)
}

// URL returns the download URL of name.
func (s *HTTPSource) URL(name string) string {
	return s.baseURL + name
}

// Download implements Source, streaming the archive to dest.
func (s *HTTPSource) Download(ctx context.Context, name, dest string) error {
	body, err := s.get(ctx, s.URL(name))
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return apperrors.Wrap(apperrors.CodeDownloadError, "create download directory", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDownloadError, "create archive file", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return apperrors.Wrap(apperrors.CodeDownloadError, "download "+name, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.Wrap(apperrors.CodeDownloadError, "close archive file", err)
	}
	return nil
}

func (s *HTTPSource) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDownloadError, "build request", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDownloadError, "GET "+url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperrors.Newf(apperrors.CodeDownloadError, "GET %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}
