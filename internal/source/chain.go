// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"errors"
	"strings"

	"github.com/ManuGH/diyepg/internal/log"
)

// Chain tries its providers in order and returns the first document
// obtained. It fails only when every provider failed.
type Chain struct {
	providers []Provider
}

// NewChain returns a Chain over providers.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Providers returns the chained providers in order.
func (c *Chain) Providers() []Provider { return c.providers }

func (c *Chain) Name() string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

func (c *Chain) Key() string {
	keys := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		keys = append(keys, p.Key())
	}
	return strings.Join(keys, "|")
}

// Fetch returns the first successful document. When all providers fail
// the errors are joined in provider order.
func (c *Chain) Fetch(ctx context.Context) (*Document, error) {
	if len(c.providers) == 0 {
		return nil, ErrNoSources
	}
	logger := log.WithContext(ctx, log.WithComponent("source"))

	var errs []error
	for i, p := range c.providers {
		doc, err := p.Fetch(ctx)
		if err == nil {
			if i > 0 {
				logger.Info().
					Str(log.FieldEvent, "source.fallback_used").
					Str(log.FieldSource, p.Name()).
					Int("skipped", i).
					Msg("served guide from fallback source")
			}
			return doc, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 1 {
		return nil, errs[0]
	}
	return nil, errors.Join(errs...)
}

// Watch forwards to every provider that implements Watcher.
func (c *Chain) Watch(ctx context.Context, onChange func()) error {
	for _, p := range c.providers {
		w, ok := p.(Watcher)
		if !ok {
			continue
		}
		if err := w.Watch(ctx, onChange); err != nil {
			return err
		}
	}
	return nil
}
