package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heap-trace/internal/storage"
	"github.com/heap-trace/pkg/config"
	"github.com/heap-trace/pkg/utils"
)

// Fetcher downloads the newest snapshot archive and unpacks it into the
// download directory.
type Fetcher struct {
	source       Source
	downloadPath string
	logger       utils.Logger
	timer        *utils.Timer
	clock        utils.Clock
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(l utils.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithTimer records the fetch, download and extract phases on t.
func WithTimer(t *utils.Timer) Option {
	return func(f *Fetcher) { f.timer = t }
}

// WithClock sets the clock used to pick today's archive.
func WithClock(c utils.Clock) Option {
	return func(f *Fetcher) { f.clock = c }
}

// New creates a Fetcher reading from source into downloadPath.
func New(source Source, downloadPath string, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:       source,
		downloadPath: downloadPath,
		logger:       utils.GetGlobalLogger(),
		timer:        utils.NullTimer,
		clock:        utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewFromConfig builds the source selected by cfg.Source.Type.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Fetcher, error) {
	var src Source
	switch cfg.Source.Type {
	case config.SourceStorage:
		store, err := storage.New(&cfg.Storage)
		if err != nil {
			return nil, err
		}
		src = NewStorageSource(store, &cfg.Source)
	default:
		httpSrc, err := NewHTTPSource(&cfg.Source)
		if err != nil {
			return nil, err
		}
		src = httpSrc
	}
	return New(src, cfg.Analysis.DownloadPath, opts...), nil
}

// FetchLatest resolves, downloads and extracts the newest archive, removes
// the archive, and returns the path of the first file left in the download
// directory.
func (f *Fetcher) FetchLatest(ctx context.Context) (string, error) {
	f.logger.Info("fetch latest snapshot listing")
	pt := f.timer.Start("fetch")
	name, err := f.source.Latest(ctx, f.clock.Now())
	pt.Stop()
	if err != nil {
		return "", err
	}
	f.logger.Info("matched file: %s", name)

	archive := filepath.Join(f.downloadPath, name)
	f.logger.Info("downloading %s", name)
	pt = f.timer.Start("download")
	err = f.source.Download(ctx, name, archive)
	pt.Stop()
	if err != nil {
		return "", err
	}

	f.logger.Info("extracting...")
	pt = f.timer.Start("extract")
	files, err := Extract(ctx, archive, f.downloadPath)
	pt.Stop()
	if err != nil {
		return "", err
	}
	f.logger.Debug("extracted %d files", len(files))

	if err := os.Remove(archive); err != nil {
		return "", fmt.Errorf("remove archive: %w", err)
	}
	f.logger.Info("removed file: %s", archive)

	return FirstFile(f.downloadPath)
}

// FirstFile returns the first regular, non-hidden file in dir by name.
func FirstFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoFile
		}
		return "", fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		return filepath.Join(dir, e.Name()), nil
	}
	return "", ErrNoFile
}
