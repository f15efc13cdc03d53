// Package fetcher resolves, downloads and unpacks the daily heap snapshot archive.
package fetcher

import (
	"context"
	"time"
)

// DateLayout is the date embedded in archive names.
const DateLayout = "2006-01-02"

// Source publishes dated snapshot archives.
type Source interface {
	// Latest returns the newest archive name available at now.
	Latest(ctx context.Context, now time.Time) (string, error)

	// Download writes the named archive to dest.
	Download(ctx context.Context, name, dest string) error
}

// Naming builds archive names such as "heapsnapshots-2024-01-02.tar.gz".
type Naming struct {
	Prefix string
	Suffix string
}

// DefaultNaming matches the nightly snapshot job.
var DefaultNaming = Naming{Prefix: "heapsnapshots-", Suffix: ".tar.gz"}

// Name returns the archive name for day.
func (n Naming) Name(day time.Time) string {
	return n.Prefix + day.Format(DateLayout) + n.Suffix
}

// Candidates returns today's then yesterday's archive names.
func (n Naming) Candidates(now time.Time) []string {
	return []string{n.Name(now), n.Name(now.AddDate(0, 0, -1))}
}

func namingOr(prefix, suffix string) Naming {
	n := DefaultNaming
	if prefix != "" {
		n.Prefix = prefix
	}
	if suffix != "" {
		n.Suffix = suffix
	}
	return n
}
