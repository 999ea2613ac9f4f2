// SPDX-License-Identifier: MIT

package guide

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/diyepg/internal/config"
	"github.com/ManuGH/diyepg/internal/diyp"
	"github.com/ManuGH/diyepg/internal/epg"
	"github.com/ManuGH/diyepg/internal/source"
)

const guideXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv>
  <channel id="101"><display-name lang="zh">CCTV1</display-name></channel>
  <channel id="102"><display-name>湖南卫视</display-name></channel>
  <programme start="20260105080000 +0800" stop="20260105090000 +0800" channel="101">
    <title lang="zh">晨间新闻</title>
    <desc lang="zh">今日要闻</desc>
  </programme>
  <programme start="20260104230000 +0800" stop="20260105000000 +0800" channel="101">
    <title>昨日节目</title>
  </programme>
  <programme start="20260105200000 +0800" stop="20260105213000 +0800" channel="102">
    <title>快乐大本营</title>
  </programme>
</tv>`

var beijing = time.FixedZone("UTC+8", 8*3600)

type fakeProvider struct {
	body  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Key() string  { return "fake://guide" }

func (f *fakeProvider) Fetch(ctx context.Context) (*source.Document, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, &source.FetchError{Sentinel: source.ErrUpstreamUnavailable, Source: "fake", Err: err}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &source.Document{Source: "fake", Body: []byte(f.body), FetchedAt: time.Unix(1767571200, 0)}, nil
}

func newTestService(p source.Provider) *Service {
	return NewService(p, Options{
		Location: beijing,
		Site: diyp.Site{
			HomepageURL:   "https://example.com/diyepg",
			IconBaseURL:   "https://icons.example/",
			FallbackTitle: "精彩节目",
		},
		Now: func() time.Time { return time.Date(2026, 1, 5, 4, 0, 0, 0, time.UTC) },
	})
}

func query(name string, debug bool) diyp.Query {
	return diyp.Query{ChannelName: name, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, beijing), Debug: debug}
}

func TestLookup_RoundTrip(t *testing.T) {
	svc := newTestService(&fakeProvider{body: guideXML})

	resp, err := svc.Lookup(context.Background(), query("cctv1", false))
	require.NoError(t, err)

	assert.Equal(t, "CCTV1", resp.ChannelName)
	assert.Equal(t, "2026-01-05", resp.Date)
	assert.Equal(t, "https://example.com/diyepg", resp.URL)
	assert.Equal(t, "https://icons.example/CCTV1.png", resp.Icon)
	assert.Equal(t, []diyp.Entry{
		{Start: "08:00", End: "09:00", Title: "晨间新闻", Desc: "今日要闻"},
	}, resp.EPGData)
	assert.Nil(t, resp.Debug)
}

func TestLookup_SubstringMatch(t *testing.T) {
	svc := newTestService(&fakeProvider{body: guideXML})

	resp, err := svc.Lookup(context.Background(), query("湖南卫视 HD", true))
	require.NoError(t, err)

	assert.Equal(t, "湖南卫视HD", resp.ChannelName)
	require.Len(t, resp.EPGData, 1)
	assert.Equal(t, "20:00", resp.EPGData[0].Start)
	assert.Equal(t, "21:30", resp.EPGData[0].End)

	trace, ok := resp.Debug.(*Trace)
	require.True(t, ok)
	assert.Equal(t, epg.TierSubstring, trace.Tier)
	assert.Equal(t, "102", trace.MatchedChannel.ID)
}

func TestLookup_NoMatchFallsBack(t *testing.T) {
	svc := newTestService(&fakeProvider{body: guideXML})

	resp, err := svc.Lookup(context.Background(), query("XYZ", true))
	require.NoError(t, err)

	require.Len(t, resp.EPGData, 24)
	assert.Equal(t, diyp.Entry{Start: "00:00", End: "01:00", Title: "精彩节目"}, resp.EPGData[0])
	assert.Equal(t, diyp.Entry{Start: "23:00", End: "00:00", Title: "精彩节目"}, resp.EPGData[23])

	trace := resp.Debug.(*Trace)
	assert.Equal(t, epg.TierNone, trace.Tier)
	assert.Nil(t, trace.MatchedChannel)
	assert.True(t, trace.Fallback)
	assert.Equal(t, 0, trace.ProgrammeCount)
}

func TestLookup_MatchWithoutProgrammesFallsBack(t *testing.T) {
	svc := newTestService(&fakeProvider{body: guideXML})
	q := query("CCTV1", true)
	q.Date = q.Date.AddDate(0, 0, 7)

	resp, err := svc.Lookup(context.Background(), q)
	require.NoError(t, err)
	assert.Len(t, resp.EPGData, 24)

	trace := resp.Debug.(*Trace)
	assert.Equal(t, epg.TierExact, trace.Tier)
	assert.True(t, trace.Fallback)
}

func TestLookup_EmptyChannelSkipsFetch(t *testing.T) {
	p := &fakeProvider{body: guideXML}
	svc := newTestService(p)

	for _, name := range []string{"", "   ", `""`, "\u200B", "<>"} {
		_, err := svc.Lookup(context.Background(), query(name, false))
		assert.ErrorIs(t, err, ErrChannelRequired)
	}
	assert.Equal(t, 0, p.calls)
}

func TestLookup_UpstreamFailure(t *testing.T) {
	failure := &source.FetchError{Sentinel: source.ErrUpstreamStatus, Source: "fake", Status: 503}
	svc := newTestService(&fakeProvider{err: failure})

	_, err := svc.Lookup(context.Background(), query("CCTV1", false))
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrUpstreamStatus)
	assert.True(t, source.IsUpstream(err))
}

func TestLookup_CancelledCaller(t *testing.T) {
	svc := newTestService(&fakeProvider{body: guideXML})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Lookup(ctx, query("CCTV1", false))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, source.IsUpstream(err))
}

func TestLookup_DebugTrace(t *testing.T) {
	svc := newTestService(&fakeProvider{body: guideXML})

	resp, err := svc.Lookup(context.Background(), query(" cctv1 ", true))
	require.NoError(t, err)

	trace := resp.Debug.(*Trace)
	assert.Equal(t, " cctv1 ", trace.RequestedChannel)
	assert.Equal(t, "CCTV1", trace.NormalizedChannel)
	assert.Equal(t, "2026-01-05", trace.Date)
	assert.Equal(t, []string{"CCTV1", "湖南卫视"}, trace.Channels)
	assert.Equal(t, epg.TierExact, trace.Tier)
	assert.Equal(t, 1.0, trace.Score)
	assert.Equal(t, "fake", trace.Source)
	assert.Equal(t, len(guideXML), trace.DocumentBytes)
	assert.Equal(t, 1, trace.ProgrammeCount)
	assert.Equal(t, "晨间新闻", trace.Programmes[0].Title)
	assert.True(t, trace.WindowStart.Equal(time.Date(2026, 1, 5, 0, 0, 0, 0, beijing)))
	assert.Equal(t, 24*time.Hour, trace.WindowEnd.Sub(trace.WindowStart))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tier":"exact"`)
	assert.Contains(t, string(raw), `"channels":["CCTV1","湖南卫视"]`)
}

func TestBuild_RecoversPanic(t *testing.T) {
	svc := newTestService(&fakeProvider{})

	_, _, err := svc.build(query("CCTV1", false), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInternal)

	var ie *InternalError
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, ie.Stack, "guide.(*Service).build")
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.Defaults()
	opts, err := OptionsFrom(cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.HomepageURL, opts.Site.HomepageURL)
	assert.Equal(t, cfg.FallbackTitle, opts.Site.FallbackTitle)
	_, offset := time.Date(2026, 1, 5, 0, 0, 0, 0, opts.Location).Zone()
	assert.Equal(t, 8*3600, offset)

	cfg.Timezone = "nowhere"
	_, err = OptionsFrom(cfg)
	assert.Error(t, err)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&fakeProvider{}, Options{})
	assert.Equal(t, time.UTC, svc.Location())
	assert.False(t, svc.Now().IsZero())
	assert.Equal(t, config.DefaultFallbackTitle, svc.opts.Site.FallbackTitle)
	assert.Equal(t, epg.DefaultLanguage, svc.opts.Language)
}
