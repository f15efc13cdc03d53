package fetcher

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/heap-trace/pkg/compression"
	apperrors "github.com/heap-trace/pkg/errors"
)

// Extract unpacks a tar archive, optionally gzip or zstd compressed, into
// destDir and returns the regular files written.
func Extract(ctx context.Context, archive, destDir string) ([]string, error) {
	f, err := os.Open(archive)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDownloadError, "open archive", err)
	}
	defer f.Close()

	r, _, err := compression.NewReader(f)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedInput, "decompress archive", err)
	}
	defer r.Close()

	return extractTar(ctx, tar.NewReader(r), destDir)
}

func extractTar(ctx context.Context, tr *tar.Reader, destDir string) ([]string, error) {
	var files []string
	for {
		if err := ctx.Err(); err != nil {
			return files, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}
		if err != nil {
			return files, apperrors.Wrap(apperrors.CodeMalformedInput, "read archive", err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return files, fmt.Errorf("create %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return files, err
			}
			files = append(files, target)
		default:
			// links and devices are not part of snapshot archives
		}
	}
}

func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(target), err)
	}
	if perm == 0 {
		perm = 0644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return f.Close()
}
