// SPDX-License-Identifier: MIT

package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
)

const diskSuffix = ".cache"

// DiskCache stores each entry as one file named by the SHA-256 of its key.
// Files are replaced atomically. The file's modification time holds the
// entry's expiry, so an expired file is never served even across restarts.
type DiskCache struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time
	stats  struct {
		hits      atomic.Int64
		misses    atomic.Int64
		sets      atomic.Int64
		evictions atomic.Int64
	}
}

// NewDiskCache creates dir if needed and returns a cache rooted there.
func NewDiskCache(dir string, logger zerolog.Logger) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("disk cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("disk cache: create %s: %w", dir, err)
	}
	return &DiskCache{dir: dir, logger: logger, now: time.Now}, nil
}

func (c *DiskCache) Backend() string { return BackendDisk }

func (c *DiskCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+diskSuffix)
}

// Get reads the entry for key. Expired files are removed.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn().Err(err).Str("key", key).Msg("disk cache stat failed")
		}
		c.stats.misses.Add(1)
		return nil, false
	}
	if c.now().After(info.ModTime()) {
		c.remove(path)
		c.stats.evictions.Add(1)
		c.stats.misses.Add(1)
		return nil, false
	}

	// #nosec G304 -- path is derived from a hash inside the cache directory
	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("disk cache read failed")
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return data, true
}

// Set writes the entry and stamps its expiry as the modification time.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) {
	path := c.path(key)
	if err := c.write(path, value); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("disk cache write failed")
		return
	}
	expiry := c.now().Add(ttl)
	if err := os.Chtimes(path, expiry, expiry); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("disk cache stamp failed")
		c.remove(path)
		return
	}
	c.stats.sets.Add(1)
}

func (c *DiskCache) write(path string, value []byte) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending cache file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			c.logger.Debug().Err(err).Msg("cleanup pending cache file")
		}
	}()

	if _, err := pendingFile.Write(value); err != nil {
		return fmt.Errorf("write cache data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace cache file: %w", err)
	}
	return nil
}

func (c *DiskCache) Delete(key string) {
	c.remove(c.path(key))
}

// Clear removes every cache file in the directory.
func (c *DiskCache) Clear() {
	for _, path := range c.files() {
		c.remove(path)
	}
}

func (c *DiskCache) Stats() CacheStats {
	return CacheStats{
		Hits:        c.stats.hits.Load(),
		Misses:      c.stats.misses.Load(),
		Sets:        c.stats.sets.Load(),
		Evictions:   c.stats.evictions.Load(),
		CurrentSize: len(c.files()),
	}
}

func (c *DiskCache) files() []string {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Warn().Err(err).Str("dir", c.dir).Msg("disk cache list failed")
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), diskSuffix) {
			paths = append(paths, filepath.Join(c.dir, e.Name()))
		}
	}
	return paths
}

func (c *DiskCache) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn().Err(err).Str("path", path).Msg("disk cache remove failed")
	}
}
