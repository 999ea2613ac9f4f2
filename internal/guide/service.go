// SPDX-License-Identifier: MIT

// Package guide answers DIYP requests: it obtains the current guide
// document, matches the requested channel and renders one day of programmes.
package guide

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/diyp"
	"github.com/ManuGH/diyepg/internal/epg"
	"github.com/ManuGH/diyepg/internal/log"
	"github.com/ManuGH/diyepg/internal/metrics"
	"github.com/ManuGH/diyepg/internal/normalize"
	"github.com/ManuGH/diyepg/internal/source"
	"github.com/ManuGH/diyepg/internal/telemetry"
)

var (
	// ErrChannelRequired is returned before any fetch when the request names
	// no channel.
	ErrChannelRequired = errors.New("guide: channel is required")
	// ErrInternal marks an unexpected fault while building a response.
	ErrInternal = errors.New("guide: internal error")
)

// Error categories as reported to clients and in metrics.
const (
	CategoryUpstream = "upstream_unavailable"
	CategoryInternal = "internal_error"
)

// InternalError carries a recovered panic.
type InternalError struct {
	Value any
	Stack string
}

func (e *InternalError) Error() string { return fmt.Sprintf("%v: %v", ErrInternal, e.Value) }
func (e *InternalError) Unwrap() error { return ErrInternal }

// Options configures a Service.
type Options struct {
	Location *time.Location
	Language string
	Site     diyp.Site
	Now      func() time.Time
}

// OptionsFrom derives Options from the application config.
func OptionsFrom(cfg config.AppConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location: loc,
		Language: cfg.Language,
		Site: diyp.Site{
			HomepageURL:   cfg.HomepageURL,
			IconBaseURL:   cfg.IconBaseURL,
			FallbackTitle: cfg.FallbackTitle,
		},
	}, nil
}

// Service answers lookups against the documents of a provider. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	provider source.Provider
	opts     Options
}

// NewService creates a Service. Zero option fields fall back to UTC, the
// default language, time.Now and the configured default placeholder title.
func NewService(provider source.Provider, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Language == "" {
		opts.Language = epg.DefaultLanguage
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Site.FallbackTitle == "" {
		opts.Site.FallbackTitle = config.DefaultFallbackTitle
	}
	return &Service{provider: provider, opts: opts}
}

// Location is the zone used for dates and times in responses.
func (s *Service) Location() *time.Location { return s.opts.Location }

// Now returns the service clock's current time.
func (s *Service) Now() time.Time { return s.opts.Now() }

// Lookup resolves q into a DIYP response. Upstream failures are returned as
// source errors; a fault while parsing yields an *InternalError.
func (s *Service) Lookup(ctx context.Context, q diyp.Query) (diyp.Response, error) {
	if normalize.ChannelName(q.ChannelName) == "" {
		metrics.RecordLookupError("channel_required")
		return diyp.Response{}, ErrChannelRequired
	}

	ctx, span := telemetry.Tracer("diyepg/guide").Start(ctx, "guide.lookup")
	defer span.End()
	span.SetAttributes(telemetry.LookupAttributes(q.ChannelName, q.Date.Format(diyp.DateLayout))...)

	logger := log.WithComponentFromContext(ctx, "guide").With().
		Str(log.FieldChannel, q.ChannelName).
		Str(log.FieldDate, q.Date.Format(diyp.DateLayout)).
		Logger()

	doc, err := s.provider.Fetch(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return diyp.Response{}, ctxErr
		}
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(CategoryUpstream)...)
		span.SetStatus(codes.Error, CategoryUpstream)
		metrics.RecordLookupError(CategoryUpstream)
		logger.Error().Err(err).Str(log.FieldEvent, "guide.upstream_failed").Msg("guide document unavailable")
		return diyp.Response{}, err
	}

	resp, trace, err := s.build(q, doc)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(CategoryInternal)...)
		span.SetStatus(codes.Error, CategoryInternal)
		metrics.RecordLookupError(CategoryInternal)
		logger.Error().Err(err).Str(log.FieldEvent, "guide.internal_error").Msg("building guide response failed")
		return diyp.Response{}, err
	}

	span.SetAttributes(telemetry.ResultAttributes(string(trace.Tier), trace.ProgrammeCount, trace.Fallback)...)
	metrics.RecordLookup(string(trace.Tier), trace.ProgrammeCount, trace.Fallback)
	s.logResult(logger, trace)

	if q.Debug {
		resp.Debug = trace
	}
	return resp, nil
}

func (s *Service) build(q diyp.Query, doc *source.Document) (resp diyp.Response, trace *Trace, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InternalError{Value: r, Stack: string(debug.Stack())}
		}
	}()

	loc := s.opts.Location
	target := normalize.ChannelName(q.ChannelName)
	parsed := epg.ParseDocument(doc.Source, string(doc.Body), s.opts.Language)
	match := epg.MatchChannel(parsed.Channels, target)
	dayStart, dayEnd := epg.DayWindow(q.Date, loc)

	var programmes []epg.ProgrammeRecord
	if match.Found() {
		programmes = epg.ExtractProgrammes(parsed.Text, match.Channel.ID, dayStart, dayEnd, s.opts.Language)
	}
	if programmes == nil {
		programmes = []epg.ProgrammeRecord{}
	}

	resp = s.opts.Site.NewResponse(target, q.Date.In(loc))
	fallback := len(programmes) == 0
	if fallback {
		resp.EPGData = diyp.Fallback(s.opts.Site.FallbackTitle)
	} else {
		resp.EPGData = diyp.Entries(programmes, loc)
	}

	trace = &Trace{
		RequestedChannel:  q.ChannelName,
		NormalizedChannel: target,
		Date:              resp.Date,
		DateDefaulted:     q.DateDefaulted,
		WindowStart:       dayStart,
		WindowEnd:         dayEnd,
		Source:            doc.Source,
		Cached:            doc.Cached,
		FetchedAt:         doc.FetchedAt,
		DocumentBytes:     len(doc.Body),
		Channels:          parsed.NormalizedNames(),
		Tier:              match.Tier,
		Score:             match.Score,
		MatchedChannel:    match.Channel,
		ProgrammeCount:    len(programmes),
		Programmes:        programmes,
		Fallback:          fallback,
	}
	return resp, trace, nil
}

func (s *Service) logResult(logger zerolog.Logger, trace *Trace) {
	ev := logger.Debug().
		Str(log.FieldEvent, "guide.lookup").
		Str(log.FieldSource, trace.Source).
		Str(log.FieldTier, string(trace.Tier)).
		Int("programmes", trace.ProgrammeCount).
		Bool("fallback", trace.Fallback)
	if trace.MatchedChannel != nil {
		ev = ev.Str("matched_id", trace.MatchedChannel.ID)
	}
	ev.Msg("guide lookup finished")
}
