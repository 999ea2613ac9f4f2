// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/ManuGH/diyepg/internal/diyp"
	"github.com/ManuGH/diyepg/internal/guide"
	"github.com/ManuGH/diyepg/internal/log"
)

func newLookupCmd(configPath *string) *cobra.Command {
	var (
		date  string
		debug bool
	)
	cmd := &cobra.Command{
		Use:   "lookup <channel>",
		Short: "Print the guide of one channel as the endpoint would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath, log.Config{Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()

			backend, err := openCache(cfg.Cache)
			if err != nil {
				return err
			}
			if backend.close != nil {
				defer func() { _ = backend.close(context.WithoutCancel(cmd.Context())) }()
			}

			provider, _ := buildProvider(cfg, backend.cache)
			opts, err := guide.OptionsFrom(cfg)
			if err != nil {
				return err
			}
			svc := guide.NewService(provider, opts)

			v := url.Values{"ch": {args[0]}, "date": {date}}
			if debug {
				v.Set("debug", "1")
			}
			resp, err := svc.Lookup(cmd.Context(), diyp.ParseQuery(v, svc.Now(), svc.Location()))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to show, e.g. 20260105 (default today)")
	cmd.Flags().BoolVar(&debug, "debug", false, "include the match trace")
	return cmd
}
