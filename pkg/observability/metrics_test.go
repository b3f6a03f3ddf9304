package observability_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/editcore/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.EditMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	em, err := observability.NewEditMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return em, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestEditMetrics_RecordOp(t *testing.T) {
	t.Parallel()

	em, reader := setupTestMeter(t)
	ctx := context.Background()

	em.RecordOp(ctx, "edit", observability.StatusOK, 20*time.Microsecond)
	em.RecordOp(ctx, "undo", observability.StatusOK, 5*time.Microsecond)

	rm := collectMetrics(t, reader)

	ops := findMetric(rm, "editcore.ops.total")
	require.NotNil(t, ops)
	assert.Equal(t, int64(2), sumValue(t, ops))

	require.NotNil(t, findMetric(rm, "editcore.op.duration.seconds"))
	assert.Nil(t, findMetric(rm, "editcore.errors.total"))
}

func TestEditMetrics_RecordOpError(t *testing.T) {
	t.Parallel()

	em, reader := setupTestMeter(t)

	em.RecordOp(context.Background(), "edit", observability.StatusError, time.Millisecond)

	errs := findMetric(collectMetrics(t, reader), "editcore.errors.total")
	require.NotNil(t, errs)
	assert.Equal(t, int64(1), sumValue(t, errs))
}

func TestEditMetrics_Counts(t *testing.T) {
	t.Parallel()

	em, reader := setupTestMeter(t)
	ctx := context.Background()

	em.RecordInvalidated(ctx, "overlap", 3)
	em.RecordInvalidated(ctx, "surround", 0)
	em.AddHunks(ctx, 4)
	em.AddHunks(ctx, -1)
	em.AddMarkers(ctx, 2)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(3), sumValue(t, findMetric(rm, "editcore.markers.invalidated.total")))
	assert.Equal(t, int64(3), sumValue(t, findMetric(rm, "editcore.patch.hunks")))
	assert.Equal(t, int64(2), sumValue(t, findMetric(rm, "editcore.markers.live")))
}

func TestWriteMetrics(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.Prometheus = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	em, err := observability.NewEditMetrics(providers.Meter)
	require.NoError(t, err)

	em.RecordOp(context.Background(), "edit", observability.StatusOK, time.Microsecond)

	var buf bytes.Buffer

	require.NoError(t, observability.WriteMetrics(&buf, providers.Registry))
	assert.Contains(t, buf.String(), "editcore_ops")
	assert.Contains(t, buf.String(), "target_info")
}

func TestWriteMetrics_NoRegistry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.ErrorIs(t, observability.WriteMetrics(&buf, nil), observability.ErrNoRegistry)
	require.ErrorIs(t, observability.WriteMetricsFile(t.TempDir()+"/m.prom", nil), observability.ErrNoRegistry)
}
