// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/metrics"
	"github.com/ManuGH/diyepg/internal/source"
)

// Provider puts a Cache in front of a source.Provider. Concurrent misses for
// the same source share one upstream fetch. Failed fetches are never cached
// and a stale entry is never served in place of a failure.
type Provider struct {
	next   source.Provider
	cache  Cache
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

// NewProvider wraps next. A non-positive ttl disables storing.
func NewProvider(next source.Provider, c Cache, ttl time.Duration) *Provider {
	if c == nil {
		c = NewNoOpCache()
	}
	return &Provider{
		next:  next,
		cache: c,
		ttl:   ttl,
		logger: log.WithComponent("cache").With().
			Str(log.FieldSource, next.Name()).
			Str("backend", c.Backend()).
			Logger(),
	}
}

func (p *Provider) Name() string { return p.next.Name() }
func (p *Provider) Key() string  { return p.next.Key() }

// Fetch returns the cached document or fetches it. A caller that gives up
// does not cancel the shared fetch for the others.
func (p *Provider) Fetch(ctx context.Context) (*source.Document, error) {
	key := p.next.Key()
	if raw, ok := p.cache.Get(key); ok {
		doc, err := decodeEntry(p.next.Name(), raw)
		if err == nil {
			metrics.RecordCacheLookup(p.cache.Backend(), true)
			return doc, nil
		}
		p.logger.Warn().Err(err).Str(log.FieldEvent, "cache.corrupt_entry").Msg("dropping unreadable cache entry")
		p.cache.Delete(key)
	}
	metrics.RecordCacheLookup(p.cache.Backend(), false)

	fetchCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		doc, err := p.next.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		if p.ttl > 0 {
			p.cache.Set(key, encodeEntry(doc), p.ttl)
		}
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*source.Document), nil
	}
}

// Invalidate drops the cached document so that the next Fetch goes upstream.
func (p *Provider) Invalidate() {
	key := p.next.Key()
	p.cache.Delete(key)
	p.group.Forget(key)
	p.logger.Info().Str(log.FieldEvent, "cache.invalidated").Msg("cached guide invalidated")
}

// Watch invalidates the entry whenever the wrapped provider reports a
// change, then calls onChange. Providers that cannot watch are a no-op.
func (p *Provider) Watch(ctx context.Context, onChange func()) error {
	w, ok := p.next.(source.Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func() {
		p.Invalidate()
		if onChange != nil {
			onChange()
		}
	})
}

// An entry is the fetch time as big-endian Unix nanoseconds followed by
// the document body.
const entryHeader = 8

var errShortEntry = errors.New("cache entry too short")

func encodeEntry(doc *source.Document) []byte {
	buf := make([]byte, entryHeader+len(doc.Body))
	binary.BigEndian.PutUint64(buf, uint64(doc.FetchedAt.UnixNano()))
	copy(buf[entryHeader:], doc.Body)
	return buf
}

func decodeEntry(name string, raw []byte) (*source.Document, error) {
	if len(raw) <= entryHeader {
		return nil, errShortEntry
	}
	fetched := time.Unix(0, int64(binary.BigEndian.Uint64(raw)))
	return &source.Document{
		Source:    name,
		Body:      raw[entryHeader:],
		FetchedAt: fetched,
		Cached:    true,
	}, nil
}
