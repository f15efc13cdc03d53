package fetcher

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heap-trace/pkg/compression"
)

type tarEntry struct {
	name string
	body string
	dir  bool
}

// buildArchive returns a tar stream compressed with ct.
func buildArchive(t *testing.T, ct compression.Type, entries ...tarEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w, err := compression.NewWriter(&buf, ct)
	require.NoError(t, err)

	tw := tar.NewWriter(w)
	for _, e := range entries {
		if e.dir {
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: e.name, Typeflag: tar.TypeDir, Mode: 0755}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(e.body)),
		}))
		_, err := tw.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, w.Close())
	return buf.Bytes()
}
