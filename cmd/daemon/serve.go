// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ManuGH/diyepg/internal/api"
	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/daemon"
	"github.com/ManuGH/diyepg/internal/guide"
	"github.com/ManuGH/diyepg/internal/health"
	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/telemetry"
	"github.com/ManuGH/diyepg/internal/version"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath, log.Config{})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer func() { _ = log.Close() }()

	logger := log.WithComponent("daemon")
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("path", configPath).
		Msg("configuration loaded")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "startup.check_failed").
			Msg("startup checks failed, verify configuration and permissions")
		return err
	}

	opts, err := guide.OptionsFrom(cfg)
	if err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.ConfigFrom(cfg.Tracing, version.Version))
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}

	backend, err := openCache(cfg.Cache)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}

	provider, sources := buildProvider(cfg, backend.cache)
	svc := guide.NewService(provider, opts)

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(sources)
	if backend.probe != nil {
		hm.RegisterChecker(backend.probe)
	}

	serverCfg := config.ServerConfigFor(cfg)
	mgr, err := daemon.NewManager(serverCfg, daemon.Deps{
		Logger:         logger,
		APIHandler:     api.New(svc, hm, api.OptionsFrom(cfg)).Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		return fmt.Errorf("create daemon manager: %w", err)
	}
	if backend.close != nil {
		mgr.RegisterShutdownHook("cache", backend.close)
	}
	mgr.RegisterShutdownHook("tracing", tp.Shutdown)

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if err := provider.Watch(watchCtx, func() {
		logger.Info().Str(log.FieldEvent, "source.changed").Msg("local guide changed, cache invalidated")
	}); err != nil {
		logger.Warn().Err(err).Msg("watching local guide files failed, changes will wait for the cache TTL")
	}

	for _, src := range cfg.EnabledSources() {
		logger.Info().Str(log.FieldSource, src.Name).Msgf("→ Source: %s", maskURL(src.URL))
	}
	logger.Info().
		Str(log.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", serverCfg.ListenAddr).
		Str("cache", backend.cache.Backend()).
		Msg("starting diyepg")

	if err := mgr.Start(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "manager.failed").Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server exiting")
	return nil
}
