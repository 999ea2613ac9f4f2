// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/metrics"
)

const watchDebounce = 500 * time.Millisecond

// FileSource reads a guide from the local filesystem, for example one
// produced by a separate EPG generator job. Gzip files are accepted.
type FileSource struct {
	name     string
	path     string
	maxBytes int64
	logger   zerolog.Logger
}

// NewFileSource creates a source for path.
func NewFileSource(name, path string, maxBytes int64) *FileSource {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &FileSource{
		name:     name,
		path:     filepath.Clean(path),
		maxBytes: maxBytes,
		logger:   log.WithComponent("source").With().Str(log.FieldSource, name).Logger(),
	}
}

func (s *FileSource) Name() string { return s.name }
func (s *FileSource) Key() string  { return "file://" + s.path }

// Path is the watched guide file.
func (s *FileSource) Path() string { return s.path }

// Fetch reads and decodes the file.
func (s *FileSource) Fetch(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Sentinel: ErrUpstreamUnavailable, Source: s.name, Location: s.path, Err: err}
	}
	start := time.Now()
	body, err := s.read()
	if err != nil {
		metrics.RecordUpstreamFetch(s.name, "failure", time.Since(start))
		return nil, err
	}
	metrics.RecordUpstreamFetch(s.name, "success", time.Since(start))
	metrics.SetUpstreamDocumentBytes(s.name, len(body))
	return &Document{Source: s.name, Body: body, FetchedAt: time.Now()}, nil
}

func (s *FileSource) read() ([]byte, error) {
	fail := func(sentinel, cause error) error {
		return &FetchError{Sentinel: sentinel, Source: s.name, Location: s.path, Err: cause}
	}

	// #nosec G304 -- guide paths are provided by the operator via config
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fail(ErrUpstreamUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	body, err := decodeBody(f, s.maxBytes)
	switch {
	case errors.Is(err, errTooLarge):
		return nil, fail(ErrUpstreamTooLarge, fmt.Errorf("limit %d bytes", s.maxBytes))
	case err != nil:
		return nil, fail(ErrUpstreamDecode, err)
	case len(body) == 0:
		return nil, fail(ErrUpstreamEmpty, nil)
	}
	return body, nil
}

// Watch calls onChange, debounced, whenever the file is written, created,
// renamed or removed. The parent directory is watched so that atomic
// replacements are seen. Watch returns once the watcher is running; it
// stops when ctx is done.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.logger.Info().
		Str(log.FieldEvent, "source.watch_started").
		Str(log.FieldPath, s.path).
		Msg("watching guide file for changes")

	go s.watchLoop(ctx, watcher, onChange)
	return nil
}

func (s *FileSource) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func()) {
	defer func() { _ = watcher.Close() }()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			s.logger.Debug().
				Str(log.FieldEvent, "source.file_changed").
				Str("op", event.Op.String()).
				Msg("guide file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error().Err(err).
				Str(log.FieldEvent, "source.watch_error").
				Msg("guide file watcher error")
		}
	}
}
