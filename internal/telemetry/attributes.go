// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by spans across the service.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	SourceNameKey  = "source.name"
	SourceBytesKey = "source.bytes"

	GuideChannelKey    = "guide.channel"
	GuideDateKey       = "guide.date"
	GuideTierKey       = "guide.tier"
	GuideProgrammesKey = "guide.programmes"
	GuideFallbackKey   = "guide.fallback"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// LookupAttributes describes a guide request.
func LookupAttributes(channel, date string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if channel != "" {
		attrs = append(attrs, attribute.String(GuideChannelKey, channel))
	}
	if date != "" {
		attrs = append(attrs, attribute.String(GuideDateKey, date))
	}
	return attrs
}

// ResultAttributes describes how a guide request was answered.
func ResultAttributes(tier string, programmes int, fallback bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(GuideTierKey, tier),
		attribute.Int(GuideProgrammesKey, programmes),
		attribute.Bool(GuideFallbackKey, fallback),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
