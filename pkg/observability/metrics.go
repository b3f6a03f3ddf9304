package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricOpsTotal         = "editcore.ops.total"
	metricOpDuration       = "editcore.op.duration.seconds"
	metricErrorsTotal      = "editcore.errors.total"
	metricInvalidatedTotal = "editcore.markers.invalidated.total"
	metricHunks            = "editcore.patch.hunks"
	metricMarkers          = "editcore.markers.live"

	attrOp       = "op"
	attrStatus   = "status"
	attrRelation = "relation"

	// StatusOK marks a successful operation.
	StatusOK = "ok"
	// StatusError marks a failed operation.
	StatusError = "error"
)

// durationBucketBoundaries covers 1µs to 1s. Single edits complete in
// microseconds; whole scripts and large diffs take longer.
var durationBucketBoundaries = []float64{
	0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1,
}

// EditMetrics holds the OTel instruments recorded by editing sessions.
type EditMetrics struct {
	opsTotal         metric.Int64Counter
	opDuration       metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	invalidatedTotal metric.Int64Counter
	hunks            metric.Int64UpDownCounter
	markers          metric.Int64UpDownCounter
}

// NewEditMetrics creates the edit metric instruments from the given meter.
// It reports the first instrument that could not be created.
func NewEditMetrics(mt metric.Meter) (*EditMetrics, error) {
	var errs []error

	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := mt.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, wrapInstrumentErr(name, err))

		return c
	}

	gauge := func(name, desc, unit string) metric.Int64UpDownCounter {
		c, err := mt.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, wrapInstrumentErr(name, err))

		return c
	}

	duration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Session operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...))
	errs = append(errs, wrapInstrumentErr(metricOpDuration, err))

	em := &EditMetrics{
		opsTotal:         counter(metricOpsTotal, "Total number of session operations", "{operation}"),
		opDuration:       duration,
		errorsTotal:      counter(metricErrorsTotal, "Total number of failed operations", "{error}"),
		invalidatedTotal: counter(metricInvalidatedTotal, "Markers invalidated by edits", "{marker}"),
		hunks:            gauge(metricHunks, "Hunks in session patches", "{hunk}"),
		markers:          gauge(metricMarkers, "Markers in session indexes", "{marker}"),
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return em, nil
}

func wrapInstrumentErr(name string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("create %s: %w", name, err)
}

// RecordOp records a completed operation with its name, status, and duration.
func (em *EditMetrics) RecordOp(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	em.opsTotal.Add(ctx, 1, attrs)
	em.opDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		em.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// RecordInvalidated counts markers invalidated by one edit, by relation.
func (em *EditMetrics) RecordInvalidated(ctx context.Context, relation string, count int) {
	if count == 0 {
		return
	}

	em.invalidatedTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrRelation, relation)))
}

// AddHunks adjusts the live hunk count by delta.
func (em *EditMetrics) AddHunks(ctx context.Context, delta int) {
	if delta != 0 {
		em.hunks.Add(ctx, int64(delta))
	}
}

// AddMarkers adjusts the live marker count by delta.
func (em *EditMetrics) AddMarkers(ctx context.Context, delta int) {
	if delta != 0 {
		em.markers.Add(ctx, int64(delta))
	}
}
