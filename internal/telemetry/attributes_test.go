// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("GET", "/epg", "/epg?", 200)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "GET")
	verifyAttribute(t, attrs, HTTPRouteKey, "/epg")
	verifyAttribute(t, attrs, HTTPURLKey, "/epg?")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestLookupAttributes(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		date    string
		wantLen int
	}{
		{name: "all fields", channel: "CCTV1", date: "2026-01-05", wantLen: 2},
		{name: "only channel", channel: "CCTV1", wantLen: 1},
		{name: "empty fields", wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := LookupAttributes(tt.channel, tt.date)
			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}
			if tt.channel != "" {
				verifyAttribute(t, attrs, GuideChannelKey, tt.channel)
			}
			if tt.date != "" {
				verifyAttribute(t, attrs, GuideDateKey, tt.date)
			}
		})
	}
}

func TestResultAttributes(t *testing.T) {
	attrs := ResultAttributes("fuzzy", 12, false)

	verifyAttribute(t, attrs, GuideTierKey, "fuzzy")
	verifyIntAttribute(t, attrs, GuideProgrammesKey, 12)
	verifyBoolAttribute(t, attrs, GuideFallbackKey, false)
}

func TestErrorAttributes(t *testing.T) {
	attrs := ErrorAttributes("upstream_unavailable")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}
	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "upstream_unavailable")
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != int64(expectedValue) {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
