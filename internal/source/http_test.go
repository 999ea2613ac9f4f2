// SPDX-License-Identifier: MIT

package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/diyepg/internal/resilience"
)

const guideXML = `<?xml version="1.0" encoding="UTF-8"?>
<tv><channel id="1"><display-name>CCTV1</display-name></channel></tv>`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// countingServer serves the responses in order, repeating the last one.
func countingServer(t *testing.T, handlers ...http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(handlers) {
			n = len(handlers) - 1
		}
		handlers[n](w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(code) }
}

func body(b []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(b)
	}
}

func newTestHTTPSource(srv *httptest.Server, opts HTTPOptions) *HTTPSource {
	opts.Client = srv.Client()
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond
	}
	return NewHTTPSource("test", srv.URL+"/e.xml", opts)
}

func TestHTTPSource_PlainXML(t *testing.T) {
	var gotUA string
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(guideXML))
	})

	doc, err := newTestHTTPSource(srv, HTTPOptions{UserAgent: "diyepg-test/1"}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guideXML, string(doc.Body))
	assert.Equal(t, "test", doc.Source)
	assert.False(t, doc.FetchedAt.IsZero())
	assert.Equal(t, "diyepg-test/1", gotUA)
}

func TestHTTPSource_GzipSniffed(t *testing.T) {
	srv, _ := countingServer(t, body(gzipped(t, guideXML)))

	doc, err := newTestHTTPSource(srv, HTTPOptions{}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guideXML, string(doc.Body))
}

func TestHTTPSource_RetriesTransientFailures(t *testing.T) {
	srv, calls := countingServer(t,
		status(http.StatusBadGateway),
		status(http.StatusTooManyRequests),
		body([]byte(guideXML)),
	)

	doc, err := newTestHTTPSource(srv, HTTPOptions{Retries: 2}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, guideXML, string(doc.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSource_GivesUpAfterRetries(t *testing.T) {
	srv, calls := countingServer(t, status(http.StatusServiceUnavailable))

	_, err := newTestHTTPSource(srv, HTTPOptions{Retries: 1, BreakerThreshold: 10}).Fetch(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.True(t, IsUpstream(err))
	assert.Equal(t, int32(2), calls.Load())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestHTTPSource_ClientErrorNotRetried(t *testing.T) {
	srv, calls := countingServer(t, status(http.StatusNotFound))

	_, err := newTestHTTPSource(srv, HTTPOptions{Retries: 3}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSource_TooLarge(t *testing.T) {
	srv, calls := countingServer(t, body(gzipped(t, guideXML)))

	_, err := newTestHTTPSource(srv, HTTPOptions{Retries: 2, MaxBytes: 16}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamTooLarge)
	assert.Equal(t, int32(1), calls.Load(), "size limit is not retried")
}

func TestHTTPSource_EmptyBody(t *testing.T) {
	srv, _ := countingServer(t, body(nil))

	_, err := newTestHTTPSource(srv, HTTPOptions{}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamEmpty)
}

func TestHTTPSource_CorruptGzip(t *testing.T) {
	broken := append([]byte{}, gzipMagic...)
	broken = append(broken, []byte("not really gzip")...)
	srv, _ := countingServer(t, body(broken))

	_, err := newTestHTTPSource(srv, HTTPOptions{}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamDecode)
}

func TestHTTPSource_BreakerOpens(t *testing.T) {
	srv, calls := countingServer(t, status(http.StatusInternalServerError))
	src := newTestHTTPSource(srv, HTTPOptions{BreakerThreshold: 1, BreakerReset: time.Hour})

	_, err := src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Equal(t, resilience.StateOpen, src.BreakerState())

	_, err = src.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamOpen)
	assert.True(t, IsUpstream(err))
	assert.Equal(t, int32(1), calls.Load(), "open breaker must not reach the host")
}

func TestHTTPSource_CancelledCallerDoesNotTripBreaker(t *testing.T) {
	srv, _ := countingServer(t, body([]byte(guideXML)))
	src := newTestHTTPSource(srv, HTTPOptions{BreakerThreshold: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Fetch(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, resilience.StateClosed, src.BreakerState())
}

func TestHTTPSource_Key(t *testing.T) {
	src := NewHTTPSource("a", "https://epg.example.com/e.xml.gz", HTTPOptions{})
	assert.Equal(t, "a", src.Name())
	assert.Equal(t, "https://epg.example.com/e.xml.gz", src.Key())
}
