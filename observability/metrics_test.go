package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

// counterValue sums the points of a counter whose attributes include kv.
func counterValue(t *testing.T, data metricdata.Aggregation, kv attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("aggregation = %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(kv.Key); ok && v == kv.Value {
			total += dp.Value
		}
	}
	return total
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func TestRecordRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordRequest(ctx, "GET", "/api/v1/notes/:id", 200, 20*time.Millisecond)
	m.RecordRequest(ctx, "GET", "/api/v1/notes/:id", 404, time.Millisecond)
	m.RecordRequest(ctx, "POST", "/api/v1/notes", 201, time.Millisecond)

	data := collect(t, reader)
	if n := counterValue(t, data[MetricHTTPRequests], attribute.String("route", "/api/v1/notes/:id")); n != 2 {
		t.Errorf("requests on :id = %d", n)
	}
	if n := counterValue(t, data[MetricHTTPRequests], attribute.String("status", "404")); n != 1 {
		t.Errorf("404s = %d", n)
	}
	hist, ok := data[MetricHTTPDuration].(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration aggregation = %T", data[MetricHTTPDuration])
	}
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 3 {
		t.Errorf("duration samples = %d", count)
	}
}

func TestRecordLLMCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	m.RecordLLMCall(ctx, "gemini", nil, time.Second)
	m.RecordLLMCall(ctx, "gemini", errors.New("quota"), time.Second)
	m.RecordLLMCall(ctx, "ollama", nil, time.Second)

	data := collect(t, reader)
	if n := counterValue(t, data[MetricLLMCalls], attribute.String("status", "error")); n != 1 {
		t.Errorf("failed calls = %d", n)
	}
	if n := counterValue(t, data[MetricLLMCalls], attribute.String(AttrLLMProvider, "gemini")); n != 2 {
		t.Errorf("gemini calls = %d", n)
	}
}

func TestRecordDictation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	for _, s := range []string{"active", "stopping", "idle"} {
		m.RecordDictationState(ctx, s)
	}
	m.RecordDictationState(ctx, "active")
	m.RecordDictationError(ctx, "network")

	data := collect(t, reader)
	if n := counterValue(t, data[MetricDictationStates], attribute.String("state", "active")); n != 2 {
		t.Errorf("active = %d", n)
	}
	if n := counterValue(t, data[MetricDictationErrors], attribute.String("kind", "network")); n != 1 {
		t.Errorf("network errors = %d", n)
	}
}

func TestDefaultMetricsIsShared(t *testing.T) {
	if DefaultMetrics() != DefaultMetrics() {
		t.Error("DefaultMetrics returned different instances")
	}
	DefaultMetrics().RecordLLMCall(context.Background(), "none", nil, 0)
}
