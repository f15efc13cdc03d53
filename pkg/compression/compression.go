// Package compression detects and decodes compressed snapshot and archive streams.
package compression

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Type represents the compression algorithm of a stream.
type Type uint8

const (
	// TypeNone is an uncompressed stream.
	TypeNone Type = iota
	// TypeGzip is a gzip stream (.gz, .tar.gz).
	TypeGzip
	// TypeZstd is a zstd stream (.zst, .tar.zst).
	TypeZstd
)

// String returns the human-readable name of the type.
func (t Type) String() string {
	switch t {
	case TypeGzip:
		return "gzip"
	case TypeZstd:
		return "zstd"
	default:
		return "none"
	}
}

// DetectType detects the compression type from magic bytes.
func DetectType(header []byte) Type {
	if len(header) >= 4 && header[0] == 0x28 && header[1] == 0xb5 && header[2] == 0x2f && header[3] == 0xfd {
		return TypeZstd
	}
	if len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b {
		return TypeGzip
	}
	return TypeNone
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r *readCloser) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// NewReader sniffs the first bytes of r and returns a reader yielding the
// decompressed stream. Uncompressed input is passed through unchanged.
// Closing the returned reader does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Type, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(4)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, TypeNone, fmt.Errorf("failed to read stream header: %w", err)
	}

	switch t := DetectType(header); t {
	case TypeGzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, t, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return zr, t, nil
	case TypeZstd:
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, t, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return &readCloser{Reader: zr, close: func() error {
			zr.Close()
			return nil
		}}, t, nil
	default:
		return &readCloser{Reader: br}, t, nil
	}
}

// NewWriter wraps w in a compressing writer of the given type.
// The caller must Close the returned writer to flush it.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case TypeGzip:
		return gzip.NewWriter(w), nil
	case TypeZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		return zw, nil
	case TypeNone:
		return nopWriteCloser{w}, nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", t)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
