// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus collectors of the guide service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookup metrics
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diyepg_lookups_total",
		Help: "Channel lookups by match tier",
	}, []string{"tier"}) // tier=exact|substring|similarity|prefix|none

	lookupErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diyepg_lookup_errors_total",
		Help: "Lookups that ended in an error response by category",
	}, []string{"category"}) // category=upstream_unavailable|internal_error

	fallbackResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "diyepg_fallback_responses_total",
		Help: "Responses served with the placeholder schedule",
	})

	programmesPerResponse = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "diyepg_programmes_per_response",
		Help:    "Number of programmes returned per matched lookup",
		Buckets: []float64{0, 1, 5, 10, 20, 30, 50, 100},
	})

	// Upstream metrics
	upstreamFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diyepg_upstream_fetch_total",
		Help: "Upstream guide fetches by source and outcome",
	}, []string{"source", "outcome"}) // outcome=success|failure|breaker_open

	upstreamFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "diyepg_upstream_fetch_duration_seconds",
		Help:    "Upstream guide fetch latency including retries",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"source"})

	upstreamDocumentBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "diyepg_upstream_document_bytes",
		Help: "Size of the last decoded guide document per source",
	}, []string{"source"})

	// Cache metrics
	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "diyepg_cache_lookups_total",
		Help: "Document cache lookups by backend and result",
	}, []string{"backend", "result"}) // result=hit|miss
)

// RecordLookup records a completed lookup. programmes is only observed for
// matched channels.
func RecordLookup(tier string, programmes int, fallback bool) {
	lookupsTotal.WithLabelValues(tier).Inc()
	if fallback {
		fallbackResponsesTotal.Inc()
		return
	}
	programmesPerResponse.Observe(float64(programmes))
}

// RecordLookupError counts a lookup that failed with the given category.
func RecordLookupError(category string) {
	lookupErrorsTotal.WithLabelValues(category).Inc()
}

// RecordUpstreamFetch records one fetch of a source, retries included.
func RecordUpstreamFetch(source, outcome string, d time.Duration) {
	upstreamFetchTotal.WithLabelValues(source, outcome).Inc()
	upstreamFetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// SetUpstreamDocumentBytes records the decoded size of the last document.
func SetUpstreamDocumentBytes(source string, n int) {
	upstreamDocumentBytes.WithLabelValues(source).Set(float64(n))
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(backend, result).Inc()
}
