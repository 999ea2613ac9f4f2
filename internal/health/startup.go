// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/log"
)

// PerformStartupChecks validates the environment before the server starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, "listen", cfg.ListenAddr); err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		if err := checkListenAddr(logger, "metrics", cfg.MetricsAddr); err != nil {
			return err
		}
	}

	if cfg.Cache.Backend == config.CacheDisk {
		if err := checkCacheDir(logger, cfg.Cache.Dir); err != nil {
			return fmt.Errorf("cache directory check failed: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, what, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s address %q: %w", what, addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid %s port %q in %q", what, port, addr)
	}
	logger.Info().Str("addr", addr).Msgf("%s address is valid", what)
	return nil
}

// checkCacheDir creates the disk cache directory if needed and proves it is
// writable.
func checkCacheDir(logger zerolog.Logger, path string) error {
	if path == "" {
		return fmt.Errorf("directory not configured")
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("cache directory is writable")
	return nil
}
