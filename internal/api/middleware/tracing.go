// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/diyepg/internal/telemetry"
)

// Tracing wraps the handler with OpenTelemetry HTTP instrumentation. The
// server span is started by otelhttp, which also extracts the caller's
// trace context, and renamed after routing to "METHOD /route".
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			annotateSpan(next),
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithSpanOptions(
				trace.WithAttributes(semconv.ServiceName(serviceName)),
			),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips probe and scrape endpoints.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter names the span before routing. Query values never go
// into traces.
func spanNameFormatter(_ string, r *http.Request) string {
	if r.URL.RawQuery != "" {
		return r.Method + " " + r.URL.Path + "?"
	}
	return r.Method + " " + r.URL.Path
}

func annotateSpan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		span := trace.SpanFromContext(r.Context())
		if !span.IsRecording() {
			return
		}

		route := routePattern(r)
		span.SetName(r.Method + " " + route)

		urlLabel := r.URL.Path
		if r.URL.RawQuery != "" {
			urlLabel += "?"
		}
		statusCode := ww.Status()
		attrs := telemetry.HTTPAttributes(r.Method, route, urlLabel, statusCode)
		if reqID := ww.Header().Get(HeaderRequestID); reqID != "" {
			attrs = append(attrs, attribute.String(telemetry.HTTPRequestIDKey, reqID))
		}
		span.SetAttributes(attrs...)

		if statusCode >= 500 {
			span.SetStatus(codes.Error, http.StatusText(statusCode))
		}
	})
}

// ExtractTraceContext returns the trace and span IDs of the request, or
// empty strings when no span is active.
func ExtractTraceContext(r *http.Request) (traceID, spanID string) {
	spanCtx := trace.SpanContextFromContext(r.Context())
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}
