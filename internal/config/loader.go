// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment key.
const EnvPrefix = "DIYEPG_"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // every env key consulted by Load
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

// Load loads configuration with precedence: ENV > File > Defaults, then
// validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with STRICT parsing. Unknown fields
// and trailing documents are errors; keys absent from the file keep their
// defaults.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnv overrides cfg with DIYEPG_* variables.
func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.LogLevel = ParseString(l.key("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogFile = ParseString(l.key("LOG_FILE"), cfg.LogFile)
	cfg.ListenAddr = ParseString(l.key("LISTEN"), cfg.ListenAddr)
	cfg.MetricsAddr = ParseString(l.key("METRICS_LISTEN"), cfg.MetricsAddr)
	cfg.AllowedOrigins = ParseList(l.key("ALLOWED_ORIGINS"), cfg.AllowedOrigins)

	// A URL list replaces the configured sources entirely.
	if urls := ParseList(l.key("SOURCE_URLS"), nil); len(urls) > 0 {
		sources := make([]Source, len(urls))
		for i, u := range urls {
			sources[i] = Source{Name: fmt.Sprintf("env-%d", i+1), URL: u}
		}
		cfg.Sources = sources
	}

	cfg.Fetch.Timeout = ParseDuration(l.key("FETCH_TIMEOUT"), cfg.Fetch.Timeout)
	cfg.Fetch.Retries = ParseInt(l.key("FETCH_RETRIES"), cfg.Fetch.Retries)
	cfg.Fetch.UserAgent = ParseString(l.key("USER_AGENT"), cfg.Fetch.UserAgent)
	cfg.Fetch.MaxBytes = ParseInt64(l.key("FETCH_MAX_BYTES"), cfg.Fetch.MaxBytes)

	cfg.Breaker.Threshold = ParseInt(l.key("BREAKER_THRESHOLD"), cfg.Breaker.Threshold)
	cfg.Breaker.ResetTimeout = ParseDuration(l.key("BREAKER_RESET"), cfg.Breaker.ResetTimeout)

	cfg.Cache.Backend = strings.ToLower(ParseString(l.key("CACHE_BACKEND"), cfg.Cache.Backend))
	cfg.Cache.TTL = ParseDuration(l.key("CACHE_TTL"), cfg.Cache.TTL)
	cfg.Cache.Dir = ParseString(l.key("CACHE_DIR"), cfg.Cache.Dir)
	cfg.Cache.Redis.Addr = ParseString(l.key("REDIS_ADDR"), cfg.Cache.Redis.Addr)
	cfg.Cache.Redis.Password = ParseString(l.key("REDIS_PASSWORD"), cfg.Cache.Redis.Password)
	cfg.Cache.Redis.DB = ParseInt(l.key("REDIS_DB"), cfg.Cache.Redis.DB)


	cfg.Tracing.Enabled = ParseBool(l.key("TRACING_ENABLED"), cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = strings.ToLower(ParseString(l.key("TRACING_EXPORTER"), cfg.Tracing.Exporter))
	cfg.Tracing.Endpoint = ParseString(l.key("TRACING_ENDPOINT"), cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = ParseFloat(l.key("TRACING_SAMPLING_RATE"), cfg.Tracing.SamplingRate)

	cfg.Timezone = ParseString(l.key("TIMEZONE"), cfg.Timezone)
	cfg.Language = ParseString(l.key("LANGUAGE"), cfg.Language)
	cfg.HomepageURL = ParseString(l.key("HOMEPAGE_URL"), cfg.HomepageURL)
	cfg.IconBaseURL = ParseString(l.key("ICON_BASE_URL"), cfg.IconBaseURL)
	cfg.FallbackTitle = ParseString(l.key("FALLBACK_TITLE"), cfg.FallbackTitle)
}
