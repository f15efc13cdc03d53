package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compress(t *testing.T, typ Type, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, typ)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestNewReader_RoundTrip(t *testing.T) {
	original := []byte(`{"snapshot":{"node_count":0},"nodes":[],"edges":[],"strings":[]}`)

	for _, typ := range []Type{TypeNone, TypeGzip, TypeZstd} {
		t.Run(typ.String(), func(t *testing.T) {
			encoded := compress(t, typ, original)

			r, detected, err := NewReader(bytes.NewReader(encoded))
			require.NoError(t, err)
			defer r.Close()

			assert.Equal(t, typ, detected)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, original, got)
		})
	}
}

func TestNewReader_ShortInput(t *testing.T) {
	r, typ, err := NewReader(bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, TypeNone, typ)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestNewReader_CorruptGzip(t *testing.T) {
	_, _, err := NewReader(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}))
	assert.Error(t, err)
}

func TestDetectType(t *testing.T) {
	tests := []struct {
		name     string
		header   []byte
		expected Type
	}{
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, TypeZstd},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, TypeGzip},
		{"json", []byte(`{"sn`), TypeNone},
		{"empty", nil, TypeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectType(tt.header))
		})
	}
}

func TestNewWriter_UnknownType(t *testing.T) {
	_, err := NewWriter(io.Discard, Type(42))
	assert.Error(t, err)
}
