// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package audit

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
)

// instrumentationName identifies this package to the otel SDK.
const instrumentationName = "github.com/acton-framework/acton/pkg/audit"

// OTELEmitter mirrors sealed events to the globally configured OTLP log
// pipeline. Exporter wiring belongs to the embedding binary; when none is
// configured the global provider is a no-op.
type OTELEmitter struct {
	logger otellog.Logger
}

// NewOTELEmitter creates an emitter against the global logger provider.
func NewOTELEmitter() *OTELEmitter {
	return &OTELEmitter{
		logger: global.GetLoggerProvider().Logger(instrumentationName),
	}
}

// Emit converts the event to an OTLP log record and emits it.
func (e *OTELEmitter) Emit(ctx context.Context, event *Event) {
	var record otellog.Record
	record.SetTimestamp(event.Timestamp)
	record.SetSeverity(otelSeverity(event.Severity))
	record.SetBody(otellog.StringValue(string(event.Kind)))
	record.AddAttributes(
		otellog.String("audit.id", event.ID),
		otellog.Int64("audit.sequence", int64(event.Sequence)), //nolint:gosec // sequences fit
		otellog.String("audit.hash", event.Hash),
		otellog.String("audit.service_name", event.ServiceName),
		otellog.String("audit.subject", event.Source.Subject),
		otellog.String("audit.request_id", event.Source.RequestID),
		otellog.String("http.method", event.Method),
		otellog.String("http.path", event.Path),
		otellog.Int("http.status_code", event.StatusCode),
		otellog.Int64("http.duration_ms", event.DurationMS),
	)

	e.logger.Emit(ctx, record)
}

// otelSeverity maps the syslog scale onto otel log severities.
func otelSeverity(s Severity) otellog.Severity {
	switch s {
	case SeverityEmergency, SeverityAlert:
		return otellog.SeverityFatal
	case SeverityCritical, SeverityError:
		return otellog.SeverityError
	case SeverityWarning:
		return otellog.SeverityWarn
	case SeverityNotice, SeverityInformational:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}
