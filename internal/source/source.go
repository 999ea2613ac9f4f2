// SPDX-License-Identifier: MIT

// Package source downloads XMLTV guide documents from HTTP URLs or local
// files.
package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/ManuGH/diyepg/internal/config"
)

// Document is one fetched and decoded guide.
type Document struct {
	Source    string // name of the source that produced it
	Body      []byte
	FetchedAt time.Time
	Cached    bool // served from the document cache
}

// Provider yields the current guide document of one upstream.
type Provider interface {
	// Name identifies the provider in logs, metrics and debug output.
	Name() string
	// Key identifies the underlying document for caching.
	Key() string
	// Fetch blocks until the document is available or ctx is done.
	Fetch(ctx context.Context) (*Document, error)
}

// Watcher is implemented by providers that can report document changes.
type Watcher interface {
	// Watch calls onChange after the document changed, until ctx is done.
	Watch(ctx context.Context, onChange func()) error
}

// New builds the provider for one configured source: file:// URLs and
// plain paths become a FileSource, everything else an HTTPSource.
func New(src config.Source, fetch config.FetchConfig, breaker config.BreakerConfig) Provider {
	name := src.Name
	if name == "" {
		name = src.URL
	}
	if path, ok := localPath(src.URL); ok {
		return NewFileSource(name, path, fetch.MaxBytes)
	}
	return NewHTTPSource(name, src.URL, HTTPOptions{
		Timeout:          fetch.Timeout,
		Retries:          fetch.Retries,
		UserAgent:        fetch.UserAgent,
		MaxBytes:         fetch.MaxBytes,
		BreakerThreshold: breaker.Threshold,
		BreakerReset:     breaker.ResetTimeout,
	})
}

func localPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		if u.Path != "" {
			return u.Path, true
		}
		return u.Opaque, u.Opaque != ""
	case "":
		return raw, raw != ""
	}
	return "", false
}
