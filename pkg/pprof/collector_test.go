package pprof

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heap-trace/pkg/utils"
)

func TestParseProfileTypes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []ProfileType
		wantErr bool
	}{
		{"Empty", "", DefaultProfileTypes(), false},
		{"Single", "heap", []ProfileType{ProfileHeap}, false},
		{"MixedCase", " CPU , Allocs", []ProfileType{ProfileCPU, ProfileAllocs}, false},
		{"Duplicates", "heap,heap", []ProfileType{ProfileHeap}, false},
		{"Unknown", "heap,threads", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProfileTypes(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"DisabledIsValid", func(c *Config) { c.Mode = "bogus" }, ""},
		{"File", func(c *Config) { c.Enabled = true }, ""},
		{"HTTP", func(c *Config) { c.Enabled = true; c.Mode = ModeHTTP }, ""},
		{"BadMode", func(c *Config) { c.Enabled = true; c.Mode = "bogus" }, "invalid pprof mode"},
		{"NoProfiles", func(c *Config) { c.Enabled = true; c.Profiles = nil }, "at least one profile"},
		{"NoOutputDir", func(c *Config) { c.Enabled = true; c.OutputDir = "" }, "output directory"},
		{"NoAddr", func(c *Config) { c.Enabled = true; c.Mode = ModeHTTP; c.Addr = "" }, "HTTP address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCollector_Disabled(t *testing.T) {
	c, err := NewCollector(nil)
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	files, err := c.Stop()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollector_FileMode(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pprof")
	clock := utils.NewMockClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	c, err := NewCollector(&Config{
		Enabled:   true,
		Mode:      ModeFile,
		Profiles:  []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine},
		OutputDir: dir,
	}, WithClock(clock))
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.Error(t, c.Start(context.Background()))

	files, err := c.Stop()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "cpu_20240102_030405.pprof"),
		filepath.Join(dir, "heap_20240102_030405.pprof"),
		filepath.Join(dir, "goroutine_20240102_030405.pprof"),
	}, files)
	for _, f := range files {
		assert.FileExists(t, f)
	}

	files, err = c.Stop()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCollector_HTTPMode(t *testing.T) {
	c, err := NewCollector(&Config{
		Enabled: true,
		Mode:    ModeHTTP,
		Addr:    "127.0.0.1:0",
	})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	addr := c.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get("http://" + addr + "/debug/pprof/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "goroutine")

	files, err := c.Stop()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Empty(t, c.Addr())
}
