// SPDX-License-Identifier: MIT

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordLookup(t *testing.T) {
	before := testutil.ToFloat64(lookupsTotal.WithLabelValues("exact"))
	fallbackBefore := testutil.ToFloat64(fallbackResponsesTotal)

	RecordLookup("exact", 12, false)
	RecordLookup("none", 0, true)

	assert.Equal(t, before+1, testutil.ToFloat64(lookupsTotal.WithLabelValues("exact")))
	assert.Equal(t, fallbackBefore+1, testutil.ToFloat64(fallbackResponsesTotal))
}

func TestRecordUpstreamFetch(t *testing.T) {
	before := testutil.ToFloat64(upstreamFetchTotal.WithLabelValues("primary", "success"))
	RecordUpstreamFetch("primary", "success", 150*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(upstreamFetchTotal.WithLabelValues("primary", "success")))

	SetUpstreamDocumentBytes("primary", 4096)
	assert.Equal(t, 4096.0, testutil.ToFloat64(upstreamDocumentBytes.WithLabelValues("primary")))
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("memory", "hit"))
	misses := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("memory", "miss"))

	RecordCacheLookup("memory", true)
	RecordCacheLookup("memory", false)
	RecordCacheLookup("memory", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("memory", "hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("memory", "miss")))
}

func TestSetCircuitBreakerState(t *testing.T) {
	SetCircuitBreakerState("primary", "open")
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("primary", "open")))
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("primary", "closed")))

	SetCircuitBreakerState("primary", "closed")
	assert.Equal(t, 0.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("primary", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(circuitBreakerState.WithLabelValues("primary", "closed")))
}

func TestPromhttpExposure(t *testing.T) {
	RecordLookupError("upstream_unavailable")

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body strings.Builder
	_, err = io.Copy(&body, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `diyepg_lookup_errors_total{category="upstream_unavailable"}`)
}
