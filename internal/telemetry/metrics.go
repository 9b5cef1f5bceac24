package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the client.
type Metrics struct {
	// REST metrics
	APIRequestsTotal metric.Int64Counter
	APIDurationMs    metric.Float64Histogram

	// Business metrics
	RecordOpsTotal    metric.Int64Counter
	CodeSearchesTotal metric.Int64Counter
	AlertsTotal       metric.Int64Counter

	// Session metrics
	AuthFailuresTotal metric.Int64Counter
}

// InitMetrics initializes all custom metrics.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/medvault-health/profile-client")

	apiRequestsTotal, err := meter.Int64Counter(
		"api_client_requests_total",
		metric.WithDescription("Total number of profile API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	apiDurationMs, err := meter.Float64Histogram(
		"api_client_duration_milliseconds",
		metric.WithDescription("Profile API request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	recordOpsTotal, err := meter.Int64Counter(
		"profile_record_operations_total",
		metric.WithDescription("Total number of profile record operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	codeSearchesTotal, err := meter.Int64Counter(
		"medical_code_searches_total",
		metric.WithDescription("Total number of medical-code search requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	alertsTotal, err := meter.Int64Counter(
		"panic_alerts_total",
		metric.WithDescription("Total number of panic alerts raised"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		APIRequestsTotal:  apiRequestsTotal,
		APIDurationMs:     apiDurationMs,
		RecordOpsTotal:    recordOpsTotal,
		CodeSearchesTotal: codeSearchesTotal,
		AlertsTotal:       alertsTotal,
		AuthFailuresTotal: authFailuresTotal,
	}, nil
}

// RecordRequest records one REST round trip. Satisfies the REST client's
// recorder contract.
func (m *Metrics) RecordRequest(ctx context.Context, method, path string, status int, elapsedMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", path),
		attribute.Int("http_status_code", status),
	}

	m.APIRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.APIDurationMs.Record(ctx, elapsedMs, metric.WithAttributes(attrs...))
}

// RecordRecordOperation records a create, update or delete on a profile
// collection.
func (m *Metrics) RecordRecordOperation(ctx context.Context, collection, operation string) {
	m.RecordOpsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("collection", collection),
		attribute.String("operation", operation),
	))
}

// RecordCodeSearch records one medical-code lookup.
func (m *Metrics) RecordCodeSearch(ctx context.Context, vocabulary string) {
	m.CodeSearchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("vocabulary", vocabulary),
	))
}

// RecordAlert records a raised panic alert.
func (m *Metrics) RecordAlert(ctx context.Context) {
	m.AlertsTotal.Add(ctx, 1)
}

// RecordAuthFailure records an authentication failure.
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
