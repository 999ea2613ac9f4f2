// SPDX-License-Identifier: MIT

// Package config loads the service configuration from defaults, an optional
// YAML file and DIYEPG_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheDisk   = "disk"
	CacheNone   = "none"
)

// Defaults.
const (
	DefaultListenAddr    = ":8080"
	DefaultSourceURL     = "https://raw.githubusercontent.com/zzzz0317/beijing-unicom-iptv-playlist/main/epg.xml.gz"
	DefaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	DefaultTimezone      = "+08:00"
	DefaultLanguage      = "zh"
	DefaultHomepageURL   = "https://github.com/ManuGH/diyepg"
	DefaultIconBaseURL   = "https://raw.githubusercontent.com/jackycher/my-epg-generator/main/logo/"
	DefaultFallbackTitle = "精彩节目-暂未提供节目预告信息"
	DefaultCacheDir      = "./epg_cache"
	DefaultFetchTimeout  = 30 * time.Second
	DefaultFetchRetries  = 2
	DefaultFetchMaxBytes = 64 << 20
	DefaultCacheTTL      = time.Hour
)

// Source is one upstream XMLTV document, tried in configuration order.
type Source struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled,omitempty"`
}

// IsEnabled reports whether the source takes part in lookups. Sources are
// enabled unless explicitly disabled.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// FetchConfig controls how upstream documents are downloaded.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	UserAgent string        `yaml:"userAgent"`
	MaxBytes  int64         `yaml:"maxBytes"`
}

// BreakerConfig configures the per-source circuit breaker.
type BreakerConfig struct {
	Threshold    int           `yaml:"threshold"`
	ResetTimeout time.Duration `yaml:"resetTimeout"`
}

// RedisConfig holds Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig selects and configures the document cache.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Dir     string        `yaml:"dir"`
	Redis   RedisConfig   `yaml:"redis"`
}

// Tracing exporters.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// TracingConfig enables exporting OpenTelemetry spans to an OTLP collector.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// AppConfig is the fully resolved service configuration.
type AppConfig struct {
	LogLevel    string `yaml:"logLevel"`
	LogFile     string `yaml:"logFile"`
	ListenAddr  string `yaml:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
	// AllowedOrigins lists browser origins allowed to call the endpoint;
	// "*" allows any. Empty disables CORS headers.
	AllowedOrigins []string      `yaml:"allowedOrigins"`
	Tracing        TracingConfig `yaml:"tracing"`
	Sources        []Source      `yaml:"sources"`
	Fetch          FetchConfig   `yaml:"fetch"`
	Breaker        BreakerConfig `yaml:"breaker"`
	Cache          CacheConfig   `yaml:"cache"`
	Timezone       string        `yaml:"timezone"`
	Language       string        `yaml:"language"`
	HomepageURL    string        `yaml:"homepageUrl"`
	IconBaseURL    string        `yaml:"iconBaseUrl"`
	FallbackTitle  string        `yaml:"fallbackTitle"`

	// Version is set from the binary, never from the file.
	Version string `yaml:"-"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		ListenAddr: DefaultListenAddr,
		Sources:    []Source{{Name: "zzzz0317", URL: DefaultSourceURL}},
		Fetch: FetchConfig{
			Timeout:   DefaultFetchTimeout,
			Retries:   DefaultFetchRetries,
			UserAgent: DefaultUserAgent,
			MaxBytes:  DefaultFetchMaxBytes,
		},
		Breaker: BreakerConfig{
			Threshold:    3,
			ResetTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     DefaultCacheTTL,
			Dir:     DefaultCacheDir,
		},
		Tracing: TracingConfig{
			Exporter:     ExporterHTTP,
			SamplingRate: 1.0,
		},
		Timezone:      DefaultTimezone,
		Language:      DefaultLanguage,
		HomepageURL:   DefaultHomepageURL,
		IconBaseURL:   DefaultIconBaseURL,
		FallbackTitle: DefaultFallbackTitle,
	}
}

// EnabledSources returns the sources that take part in lookups, in order.
func (c AppConfig) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// Location resolves Timezone. Fixed offsets such as "+08:00", "+0800" or
// "UTC" are preferred; IANA names are accepted when the zone database is
// available.
func (c AppConfig) Location() (*time.Location, error) {
	return ParseLocation(c.Timezone)
}

var offsetPattern = regexp.MustCompile(`^(?:UTC|GMT)?([+-])(\d{1,2})(?::?(\d{2}))?$`)

// ParseLocation turns a timezone setting into a location.
func ParseLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	switch strings.ToUpper(tz) {
	case "", "UTC", "Z", "GMT":
		return time.UTC, nil
	}
	if m := offsetPattern.FindStringSubmatch(strings.ToUpper(tz)); m != nil {
		hh, _ := strconv.Atoi(m[2])
		mm := 0
		if m[3] != "" {
			mm, _ = strconv.Atoi(m[3])
		}
		if hh > 14 || mm > 59 {
			return nil, fmt.Errorf("timezone %q: offset out of range", tz)
		}
		secs := hh*3600 + mm*60
		if m[1] == "-" {
			secs = -secs
		}
		return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", m[1], hh, mm), secs), nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate rejects configurations the service cannot run with.
func Validate(c AppConfig) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.ListenAddr) == "" {
		add("listenAddr must not be empty")
	}
	enabled := c.EnabledSources()
	if len(enabled) == 0 {
		add("at least one enabled source is required")
	}
	names := make(map[string]struct{}, len(c.Sources))
	for i, s := range c.Sources {
		if strings.TrimSpace(s.URL) == "" {
			add("sources[%d]: url must not be empty", i)
			continue
		}
		if u, err := url.Parse(s.URL); err != nil {
			add("sources[%d]: invalid url: %v", i, err)
		} else if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" {
			add("sources[%d]: unsupported scheme %q", i, u.Scheme)
		}
		if s.Name != "" {
			if _, dup := names[s.Name]; dup {
				add("sources[%d]: duplicate name %q", i, s.Name)
			}
			names[s.Name] = struct{}{}
		}
	}
	if c.Fetch.Timeout <= 0 {
		add("fetch.timeout must be positive")
	}
	if c.Fetch.Retries < 0 {
		add("fetch.retries must not be negative")
	}
	if c.Fetch.MaxBytes <= 0 {
		add("fetch.maxBytes must be positive")
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheDisk:
		if strings.TrimSpace(c.Cache.Dir) == "" {
			add("cache.dir is required for the disk backend")
		}
	case CacheRedis:
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			add("cache.redis.addr is required for the redis backend")
		}
	default:
		add("cache.backend %q is not one of memory, redis, disk, none", c.Cache.Backend)
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		add("cache.ttl must be positive")
	}
	if c.Tracing.Enabled {
		if c.Tracing.Exporter != ExporterGRPC && c.Tracing.Exporter != ExporterHTTP {
			add("tracing.exporter %q is not one of grpc, http", c.Tracing.Exporter)
		}
		if strings.TrimSpace(c.Tracing.Endpoint) == "" {
			add("tracing.endpoint is required when tracing is enabled")
		}
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		add("tracing.samplingRate must be between 0 and 1")
	}
	if _, err := c.Location(); err != nil {
		add("%v", err)
	}
	if strings.TrimSpace(c.Language) == "" {
		add("language must not be empty")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
