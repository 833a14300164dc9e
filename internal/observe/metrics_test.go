package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestCounterObservation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RegionsCreated.Add(ctx, 1)
	m.RegionsCreated.Add(ctx, 2)

	rm := collect(t, reader)
	md := findMetric(rm, "labelwave.regions.created")
	if md == nil {
		t.Fatal("labelwave.regions.created not found")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected data type %T", md.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 3 {
		t.Errorf("counter total = %d, want 3", total)
	}
}

func TestGestureRejectionAttributes(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordGestureRejection(context.Background(), "too_short")

	rm := collect(t, reader)
	md := findMetric(rm, "labelwave.gesture.rejections")
	if md == nil {
		t.Fatal("labelwave.gesture.rejections not found")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 {
		t.Fatalf("unexpected data %+v", md.Data)
	}
	if v, ok := sum.DataPoints[0].Attributes.Value("reason"); !ok || v.AsString() != "too_short" {
		t.Errorf("reason attribute = %v, want too_short", v)
	}
}

func TestActiveDocumentsUpDown(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveDocuments.Add(ctx, 1)
	m.ActiveDocuments.Add(ctx, 1)
	m.ActiveDocuments.Add(ctx, -1)

	rm := collect(t, reader)
	md := findMetric(rm, "labelwave.active_documents")
	if md == nil {
		t.Fatal("labelwave.active_documents not found")
	}
	sum, ok := md.Data.(metricdata.Sum[int64])
	if !ok || len(sum.DataPoints) != 1 {
		t.Fatalf("unexpected data %+v", md.Data)
	}
	if got := sum.DataPoints[0].Value; got != 1 {
		t.Errorf("gauge value = %d, want 1", got)
	}
}
