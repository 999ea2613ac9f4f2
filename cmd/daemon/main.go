// SPDX-License-Identifier: MIT

// Command diyepg serves XMLTV guides to DIYP players.
package main

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/version"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "diyepg",
		Short:        "Serve XMLTV guides in the DIYP JSON format",
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.ParseString(config.EnvPrefix+"CONFIG", ""),
		"path to config file (YAML)")

	root.AddCommand(
		newServeCmd(&configPath),
		newLookupCmd(&configPath),
		newHealthcheckCmd(),
	)
	return root
}

// loadConfig applies ENV > file > defaults and configures the global logger.
func loadConfig(configPath string, logOpts log.Config) (config.AppConfig, error) {
	cfg, err := config.NewLoader(configPath, version.Version).Load()
	if err != nil {
		return cfg, err
	}
	logOpts.Level = cfg.LogLevel
	logOpts.File = cfg.LogFile
	logOpts.Service = "diyepg"
	logOpts.Version = version.Version
	log.Configure(logOpts)
	return cfg, nil
}
