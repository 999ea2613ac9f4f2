// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "v-test").Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, DefaultFallbackTitle, cfg.FallbackTitle)
	assert.Equal(t, "v-test", cfg.Version)
	require.Len(t, cfg.EnabledSources(), 1)
	assert.Equal(t, DefaultSourceURL, cfg.Sources[0].URL)

	loc, err := cfg.Location()
	require.NoError(t, err)
	_, offset := time.Date(2026, 1, 5, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 8*3600, offset)
}

func TestLoader_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
logLevel: debug
listenAddr: ":9090"
sources:
  - name: primary
    url: https://epg.example.com/e.xml.gz
  - name: disabled
    url: https://epg.example.com/old.xml
    enabled: false
  - name: local
    url: file:///var/lib/diyepg/guide.xml
fetch:
  timeout: 10s
  retries: 4
cache:
  backend: disk
  ttl: 30m
  dir: /tmp/diyepg-cache
timezone: "+09:00"
fallbackTitle: 暂无节目
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 4, cfg.Fetch.Retries)
	assert.Equal(t, DefaultUserAgent, cfg.Fetch.UserAgent, "keys missing from the file keep defaults")
	assert.Equal(t, CacheDisk, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "暂无节目", cfg.FallbackTitle)

	enabled := cfg.EnabledSources()
	require.Len(t, enabled, 2)
	assert.Equal(t, "primary", enabled[0].Name)
	assert.Equal(t, "local", enabled[1].Name)
}

func TestLoader_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "config.yml", `
listenAddr: ":9090"
cache:
  backend: disk
`)
	t.Setenv("DIYEPG_LISTEN", ":7070")
	t.Setenv("DIYEPG_CACHE_BACKEND", "REDIS")
	t.Setenv("DIYEPG_REDIS_ADDR", "localhost:6379")
	t.Setenv("DIYEPG_SOURCE_URLS", "https://a.example/e.xml, https://b.example/e.xml.gz")
	t.Setenv("DIYEPG_FETCH_MAX_BYTES", "1048576")
	t.Setenv("DIYEPG_ALLOWED_ORIGINS", "https://player.example")
	t.Setenv("DIYEPG_TRACING_ENABLED", "true")
	t.Setenv("DIYEPG_TRACING_EXPORTER", "GRPC")
	t.Setenv("DIYEPG_TRACING_ENDPOINT", "otel:4317")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, int64(1<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, []string{"https://player.example"}, cfg.AllowedOrigins)
	assert.Equal(t, TracingConfig{Enabled: true, Exporter: ExporterGRPC, Endpoint: "otel:4317", SamplingRate: 1}, cfg.Tracing)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, "env-1", cfg.Sources[0].Name)
	assert.Equal(t, "https://b.example/e.xml.gz", cfg.Sources[1].URL)

	assert.Contains(t, l.ConsumedEnvKeys, "DIYEPG_LISTEN")
	assert.Contains(t, l.ConsumedEnvKeys, "DIYEPG_FALLBACK_TITLE")
}

func TestLoader_StrictFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			file:    "config.yaml",
			content: "listenAddr: \":1\"\nlistenAdress: \":2\"\n",
			wantErr: "strict config parse error",
		},
		{
			name:    "multiple documents",
			file:    "config.yaml",
			content: "listenAddr: \":1\"\n---\nlistenAddr: \":2\"\n",
			wantErr: "multiple documents",
		},
		{
			name:    "wrong extension",
			file:    "config.json",
			content: "{}",
			wantErr: "unsupported config format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.file, tt.content), "").Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_EmptyFile(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, "config.yaml", ""), "").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent.yaml"), "").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
