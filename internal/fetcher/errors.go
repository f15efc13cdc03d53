package fetcher

import "errors"

var (
	// ErrNoSnapshot is returned when neither today's nor yesterday's archive is published.
	ErrNoSnapshot = errors.New("no snapshot found")

	// ErrNoFile is returned when extraction leaves the download directory empty.
	ErrNoFile = errors.New("no file found")

	// ErrUnsafePath is returned for archive entries that would land outside the target directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)
