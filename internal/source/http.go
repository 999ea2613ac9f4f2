// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/metrics"
	"github.com/ManuGH/diyepg/internal/resilience"
	"github.com/ManuGH/diyepg/internal/telemetry"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryDelay = time.Second
)

// HTTPOptions configures an HTTPSource. Zero values select defaults.
type HTTPOptions struct {
	Timeout          time.Duration // per attempt
	Retries          int           // additional attempts after the first
	RetryDelay       time.Duration
	UserAgent        string
	MaxBytes         int64
	BreakerThreshold int
	BreakerReset     time.Duration
	Client           *http.Client
}

// HTTPSource downloads a guide over HTTP(S). Transient failures are retried
// with a fixed delay; repeated failures open a circuit breaker so that
// requests fail fast while the host is down.
type HTTPSource struct {
	name    string
	url     string
	opts    HTTPOptions
	client  *http.Client
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewHTTPSource creates a source for url.
func NewHTTPSource(name, url string, opts HTTPOptions) *HTTPSource {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &HTTPSource{
		name:   name,
		url:    url,
		opts:   opts,
		client: client,
		breaker: resilience.NewCircuitBreaker(name, opts.BreakerThreshold, opts.BreakerReset,
			resilience.WithFailureFilter(func(err error) bool {
				return !errors.Is(err, context.Canceled)
			})),
		logger: log.WithComponent("source").With().Str(log.FieldSource, name).Logger(),
	}
}

func (s *HTTPSource) Name() string { return s.name }
func (s *HTTPSource) Key() string  { return s.url }

// BreakerState reports the state of the source's circuit breaker.
func (s *HTTPSource) BreakerState() resilience.State { return s.breaker.State() }

// Fetch downloads and decodes the document.
func (s *HTTPSource) Fetch(ctx context.Context) (*Document, error) {
	ctx, span := telemetry.Tracer("diyepg/source").Start(ctx, "source.fetch")
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.SourceNameKey, s.name), attribute.String(telemetry.HTTPURLKey, s.url))

	start := time.Now()
	var body []byte
	err := s.breaker.Execute(func() error {
		var err error
		body, err = s.fetchWithRetry(ctx)
		return err
	})

	outcome := "success"
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		outcome = "breaker_open"
		err = &FetchError{Sentinel: ErrUpstreamOpen, Source: s.name, Location: s.url}
	case err != nil:
		outcome = "failure"
	}
	metrics.RecordUpstreamFetch(s.name, outcome, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(outcome)...)
		span.SetStatus(codes.Error, outcome)
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "source.fetch_failed").
			Str("outcome", outcome).
			Msg("guide fetch failed")
		return nil, err
	}

	metrics.SetUpstreamDocumentBytes(s.name, len(body))
	span.SetAttributes(attribute.Int(telemetry.SourceBytesKey, len(body)))
	s.logger.Info().
		Str(log.FieldEvent, "source.fetched").
		Int(log.FieldBytes, len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("guide fetched")
	return &Document{Source: s.name, Body: body, FetchedAt: time.Now()}, nil
}

func (s *HTTPSource) fetchWithRetry(ctx context.Context) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			var err error
			body, err = s.fetchOnce(ctx)
			if permanent(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.opts.Retries)+1),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug().Err(err).
				Str(log.FieldEvent, "source.retry").
				Uint("attempt", n+1).
				Msg("retrying guide fetch")
		}),
	)
	var fe *FetchError
	if err != nil && !errors.As(err, &fe) {
		// retry-go reports a cancelled wait with the bare context error.
		err = &FetchError{Sentinel: ErrUpstreamUnavailable, Source: s.name, Location: s.url, Err: err}
	}
	return body, err
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	fail := func(sentinel error, status int, cause error) error {
		return &FetchError{Sentinel: sentinel, Source: s.name, Location: s.url, Status: status, Err: cause}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fail(ErrUpstreamUnavailable, 0, err))
	}
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/xml, text/xml, application/gzip, */*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fail(ErrUpstreamUnavailable, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(ErrUpstreamStatus, resp.StatusCode, nil)
	}

	body, err := decodeBody(resp.Body, s.opts.MaxBytes)
	switch {
	case errors.Is(err, errTooLarge):
		return nil, fail(ErrUpstreamTooLarge, resp.StatusCode, fmt.Errorf("limit %d bytes", s.opts.MaxBytes))
	case err != nil && ctx.Err() != nil:
		return nil, fail(ErrUpstreamUnavailable, resp.StatusCode, err)
	case err != nil:
		return nil, fail(ErrUpstreamDecode, resp.StatusCode, err)
	case len(body) == 0:
		return nil, fail(ErrUpstreamEmpty, resp.StatusCode, nil)
	}
	return body, nil
}
