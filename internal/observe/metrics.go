// Package observe provides application-wide observability primitives for
// labelwave: OpenTelemetry metrics and HTTP middleware.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all labelwave metrics.
const meterName = "github.com/labelwave/labelwave"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// RegionsCreated counts committed region creations.
	RegionsCreated metric.Int64Counter

	// RegionsDeleted counts explicit region deletions.
	RegionsDeleted metric.Int64Counter

	// GestureRejections counts drags discarded without creating a region.
	// Use with attribute: attribute.String("reason", ...).
	GestureRejections metric.Int64Counter

	// EditRejections counts rejected manual time edits.
	EditRejections metric.Int64Counter

	// BoundaryStops counts bounded-playback stops at a region end.
	BoundaryStops metric.Int64Counter

	// ExportPushes counts distinct label projections pushed outward.
	ExportPushes metric.Int64Counter

	// LoadFailures counts audio sources that failed to load (aborted
	// loads excluded).
	LoadFailures metric.Int64Counter

	// --- Gauges ---

	// ActiveDocuments tracks the number of open annotation documents.
	ActiveDocuments metric.Int64UpDownCounter

	// ConnectedClients tracks the number of live WebSocket clients.
	ConnectedClients metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Counters.
	if met.RegionsCreated, err = m.Int64Counter("labelwave.regions.created",
		metric.WithDescription("Total regions committed from drag gestures or API calls."),
	); err != nil {
		return nil, err
	}
	if met.RegionsDeleted, err = m.Int64Counter("labelwave.regions.deleted",
		metric.WithDescription("Total regions explicitly deleted."),
	); err != nil {
		return nil, err
	}
	if met.GestureRejections, err = m.Int64Counter("labelwave.gesture.rejections",
		metric.WithDescription("Total drag gestures discarded without a region, by reason."),
	); err != nil {
		return nil, err
	}
	if met.EditRejections, err = m.Int64Counter("labelwave.edit.rejections",
		metric.WithDescription("Total manual time edits rejected by validation."),
	); err != nil {
		return nil, err
	}
	if met.BoundaryStops, err = m.Int64Counter("labelwave.playback.boundary_stops",
		metric.WithDescription("Total bounded-playback stops at a region boundary."),
	); err != nil {
		return nil, err
	}
	if met.ExportPushes, err = m.Int64Counter("labelwave.export.pushes",
		metric.WithDescription("Total distinct label projections pushed to consumers."),
	); err != nil {
		return nil, err
	}
	if met.LoadFailures, err = m.Int64Counter("labelwave.source.load_failures",
		metric.WithDescription("Total audio sources that failed to load."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveDocuments, err = m.Int64UpDownCounter("labelwave.active_documents",
		metric.WithDescription("Number of open annotation documents."),
	); err != nil {
		return nil, err
	}
	if met.ConnectedClients, err = m.Int64UpDownCounter("labelwave.connected_clients",
		metric.WithDescription("Number of live WebSocket clients."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("labelwave.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordGestureRejection records a discarded drag with the standard reason
// attribute.
func (m *Metrics) RecordGestureRejection(ctx context.Context, reason string) {
	m.GestureRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
