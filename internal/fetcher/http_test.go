package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heap-trace/pkg/config"
	apperrors "github.com/heap-trace/pkg/errors"
)

var testNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func listingHTML(names ...string) string {
	html := "<html><head><title>Index of /snapshots/</title></head><body><pre>\n"
	html += `<a href="../">../</a>` + "\n"
	for _, n := range names {
		html += fmt.Sprintf(`<a href="%s">%s</a>      01-Mar-2024 02:00   1048576`+"\n", n, n)
	}
	return html + "</pre></body></html>"
}

func newHTTPSource(t *testing.T, url string) *HTTPSource {
	t.Helper()
	src, err := NewHTTPSource(&config.SourceConfig{SnapshotURL: url, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return src
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "heapsnapshots-2024-03-01.tar.gz", DefaultNaming.Name(testNow))
	assert.Equal(t, []string{
		"heapsnapshots-2024-03-01.tar.gz",
		"heapsnapshots-2024-02-29.tar.gz",
	}, DefaultNaming.Candidates(testNow))

	n := namingOr("heap-", "")
	assert.Equal(t, "heap-2024-03-01.tar.gz", n.Name(testNow))
}

func TestNewHTTPSource(t *testing.T) {
	_, err := NewHTTPSource(&config.SourceConfig{})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfigError, apperrors.GetErrorCode(err))

	src := newHTTPSource(t, "https://snapshots.example.com/daily")
	assert.Equal(t, "https://snapshots.example.com/daily/heapsnapshots-2024-03-01.tar.gz", src.URL("heapsnapshots-2024-03-01.tar.gz"))
}

func TestHTTPSource_MatchLatest(t *testing.T) {
	src := newHTTPSource(t, "https://snapshots.example.com/")

	tests := []struct {
		name    string
		listing string
		want    string
		wantErr error
	}{
		{
			name:    "Today",
			listing: listingHTML("heapsnapshots-2024-02-29.tar.gz", "heapsnapshots-2024-03-01.tar.gz"),
			want:    "heapsnapshots-2024-03-01.tar.gz",
		},
		{
			name:    "Yesterday",
			listing: listingHTML("heapsnapshots-2024-02-28.tar.gz", "heapsnapshots-2024-02-29.tar.gz"),
			want:    "heapsnapshots-2024-02-29.tar.gz",
		},
		{
			name:    "Stale",
			listing: listingHTML("heapsnapshots-2024-02-27.tar.gz"),
			wantErr: ErrNoSnapshot,
		},
		{
			name:    "MentionedWithoutLink",
			listing: "heapsnapshots-2024-03-01.tar.gz",
			wantErr: ErrNoSnapshot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := src.MatchLatest(tt.listing, testNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPSource_LatestAndDownload(t *testing.T) {
	archive := []byte("archive-bytes")
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshots/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/snapshots/":
			fmt.Fprint(w, listingHTML("heapsnapshots-2024-03-01.tar.gz"))
		case "/snapshots/heapsnapshots-2024-03-01.tar.gz":
			_, _ = w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := newHTTPSource(t, srv.URL+"/snapshots/")
	ctx := context.Background()

	name, err := src.Latest(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, "heapsnapshots-2024-03-01.tar.gz", name)

	dest := filepath.Join(t.TempDir(), "download", name)
	require.NoError(t, src.Download(ctx, name, dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, archive, data)

	err = src.Download(ctx, "heapsnapshots-1999-01-01.tar.gz", filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDownloadError, apperrors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPSource_ListingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newHTTPSource(t, srv.URL).Latest(context.Background(), testNow)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDownloadError, apperrors.GetErrorCode(err))
}
