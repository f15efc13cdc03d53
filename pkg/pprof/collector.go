package pprof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	httppprof "net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	rpprof "runtime/pprof"
	"sync"
	"time"

	"github.com/heap-trace/pkg/utils"
)

// Collector captures profiles of the running process.
type Collector struct {
	config *Config
	logger utils.Logger
	clock  utils.Clock

	mu       sync.Mutex
	running  bool
	cpuFile  *os.File
	cpuPath  string
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger used for profile notifications.
func WithLogger(l utils.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithClock sets the clock used to stamp profile file names.
func WithClock(clock utils.Clock) Option {
	return func(c *Collector) {
		c.clock = clock
	}
}

// NewCollector creates a new Collector.
func NewCollector(cfg *Config, opts ...Option) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Collector{
		config: cfg,
		logger: &utils.NullLogger{},
		clock:  utils.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start begins collection. It is a no-op for a disabled config.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return fmt.Errorf("collector is already running")
	}

	if c.config.HasProfile(ProfileBlock) {
		runtime.SetBlockProfileRate(1)
	}
	if c.config.HasProfile(ProfileMutex) {
		runtime.SetMutexProfileFraction(1)
	}

	var err error
	switch c.config.Mode {
	case ModeHTTP:
		err = c.startHTTP(ctx)
	default:
		err = c.startFile()
	}
	if err != nil {
		c.resetRates()
		return err
	}
	c.running = true
	return nil
}

// Stop ends collection and returns the profile files written in file mode.
func (c *Collector) Stop() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil, nil
	}
	c.running = false
	defer c.resetRates()

	if c.config.Mode == ModeHTTP {
		return nil, c.stopHTTP()
	}
	return c.stopFile()
}

// Addr returns the address the HTTP endpoints listen on, or "" outside http mode.
func (c *Collector) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr().String()
}

func (c *Collector) startFile() error {
	if err := os.MkdirAll(c.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if !c.config.HasProfile(ProfileCPU) {
		return nil
	}

	path := c.profilePath(ProfileCPU)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := rpprof.StartCPUProfile(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	c.cpuFile = f
	c.cpuPath = path
	return nil
}

func (c *Collector) stopFile() ([]string, error) {
	var files []string
	var errs []error

	if c.cpuFile != nil {
		rpprof.StopCPUProfile()
		if err := c.cpuFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close CPU profile: %w", err))
		} else {
			files = append(files, c.cpuPath)
			c.logger.Debug("wrote %s profile: %s", ProfileCPU, c.cpuPath)
		}
		c.cpuFile = nil
	}

	for _, pt := range c.config.Profiles {
		if pt == ProfileCPU {
			continue
		}
		path, err := c.writeSnapshot(pt)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, path)
		c.logger.Debug("wrote %s profile: %s", pt, path)
	}

	return files, errors.Join(errs...)
}

func (c *Collector) writeSnapshot(pt ProfileType) (string, error) {
	p := rpprof.Lookup(string(pt))
	if p == nil {
		return "", fmt.Errorf("%s profile not found", pt)
	}
	if pt == ProfileHeap {
		runtime.GC()
	}

	path := c.profilePath(pt)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	if err := p.WriteTo(f, 0); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s profile: %w", pt, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s profile: %w", pt, err)
	}
	return path, nil
}

func (c *Collector) profilePath(pt ProfileType) string {
	name := fmt.Sprintf("%s_%s.pprof", pt, c.clock.Now().Format("20060102_150405"))
	return filepath.Join(c.config.OutputDir, name)
}

func (c *Collector) startHTTP(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", c.config.Addr, err)
	}

	c.listener = ln
	c.server = &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("pprof HTTP server error: %v", err)
		}
	}()

	c.logger.Info("pprof endpoints at http://%s/debug/pprof/", ln.Addr())
	return nil
}

func (c *Collector) stopHTTP() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.server.Shutdown(ctx)
	<-c.done
	c.server = nil
	c.listener = nil
	return err
}

func (c *Collector) resetRates() {
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}

// Handler returns a mux serving the standard pprof endpoints under /debug/pprof/.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", httppprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", httppprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", httppprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", httppprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", httppprof.Trace)
	return mux
}
