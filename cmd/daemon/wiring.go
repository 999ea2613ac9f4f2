// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"time"

	"github.com/ManuGH/diyepg/internal/cache"
	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/health"
	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/source"
)

const cacheJanitorInterval = 5 * time.Minute

// cacheBackend is the document cache with its readiness probe and cleanup.
type cacheBackend struct {
	cache cache.Cache
	probe health.Checker
	close func(ctx context.Context) error
}

func openCache(cfg config.CacheConfig) (cacheBackend, error) {
	logger := log.WithComponent("cache")

	switch cfg.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.Redis, logger)
		if err != nil {
			return cacheBackend{}, err
		}
		return cacheBackend{
			cache: rc,
			probe: health.NewPingChecker("cache", rc.HealthCheck),
			close: func(context.Context) error { return rc.Close() },
		}, nil
	case config.CacheDisk:
		dc, err := cache.NewDiskCache(cfg.Dir, logger)
		if err != nil {
			return cacheBackend{}, err
		}
		return cacheBackend{cache: dc}, nil
	case config.CacheNone:
		return cacheBackend{cache: cache.NewNoOpCache()}, nil
	default:
		mc := cache.NewMemoryCache(cacheJanitorInterval)
		return cacheBackend{
			cache: mc,
			close: func(context.Context) error {
				mc.Stop()
				return nil
			},
		}, nil
	}
}

// buildProvider chains the enabled sources in configuration order, each
// behind the shared cache, and groups their readiness checks.
func buildProvider(cfg config.AppConfig, c cache.Cache) (*source.Chain, health.Checker) {
	var (
		providers []source.Provider
		checks    []health.Checker
	)
	for _, src := range cfg.EnabledSources() {
		p := source.New(src, cfg.Fetch, cfg.Breaker)
		checks = append(checks, sourceChecker(p))
		providers = append(providers, cache.NewProvider(p, c, cfg.Cache.TTL))
	}
	return source.NewChain(providers...), health.NewAnyChecker("sources", checks...)
}

func sourceChecker(p source.Provider) health.Checker {
	switch s := p.(type) {
	case *source.HTTPSource:
		return health.NewBreakerChecker(s.Name(), s.BreakerState)
	case *source.FileSource:
		return health.NewFileChecker(s.Name(), s.Path())
	}
	return health.NewPingChecker(p.Name(), func(context.Context) error { return nil })
}
