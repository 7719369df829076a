// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry tracing for the request
// pipeline. Exporter wiring belongs to the embedding binary; against the
// default global provider every operation is a no-op.
package telemetry

import (
	"fmt"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/acton-framework/acton/pkg/ids"
)

// instrumentationName identifies this package to the otel SDK.
const instrumentationName = "github.com/acton-framework/acton/pkg/telemetry"

// HTTPMiddleware opens a server span per request, propagating any incoming
// trace context from the standard headers.
type HTTPMiddleware struct {
	serviceName string
	tracer      trace.Tracer
	propagator  propagation.TextMapPropagator
}

// NewHTTPMiddleware creates tracing middleware against the global tracer
// provider.
func NewHTTPMiddleware(serviceName string) *HTTPMiddleware {
	return &HTTPMiddleware{
		serviceName: serviceName,
		tracer:      otel.GetTracerProvider().Tracer(instrumentationName),
		propagator:  otel.GetTextMapPropagator(),
	}
}

// Handler wraps next in a server span named "METHOD /path". Responses with
// 5xx status mark the span as errored.
func (m *HTTPMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := m.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := m.tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("service.name", m.serviceName),
				attribute.String("request.id", ids.RequestIDFromContext(r.Context())),
			),
		)
		defer span.End()

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", ww.Status()))
		if ww.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(ww.Status()))
		} else {
			span.SetStatus(codes.Ok, "")
		}
	})
}
