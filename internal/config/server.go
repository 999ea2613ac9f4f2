// SPDX-License-Identifier: MIT

package config

import "time"

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// MetricsAddr, when set, serves /metrics on a separate listener.
	MetricsAddr string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration

	// WriteTimeout bounds a whole request including the upstream fetch on
	// a cold cache, so it must exceed the fetch timeout.
	WriteTimeout time.Duration

	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1 MB
	defaultShutdownTimeout   = 15 * time.Second
)

// ServerConfigFor derives the HTTP server settings from cfg.
func ServerConfigFor(cfg AppConfig) ServerConfig {
	attempts := time.Duration(cfg.Fetch.Retries + 1)
	return ServerConfig{
		ListenAddr:        cfg.ListenAddr,
		MetricsAddr:       cfg.MetricsAddr,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      attempts*cfg.Fetch.Timeout + 30*time.Second,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		ShutdownTimeout:   defaultShutdownTimeout,
	}
}
