package session

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/editcore/pkg/history"
	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/observability"
)

type options struct {
	mergeAdjacent    bool
	rebalanceEvery   int
	maxRetainedText  uint64
	seed             uint64
	strategy         markerindex.Strategy
	groupingInterval time.Duration
	historyOpts      []history.Option

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.EditMetrics
}

// Option configures a Session.
type Option func(*options)

// WithMergeAdjacent makes the recorded patch merge hunks that touch.
func WithMergeAdjacent(merge bool) Option {
	return func(o *options) { o.mergeAdjacent = merge }
}

// WithRebalanceEvery rebalances the recorded patch after every n edits.
// Zero disables periodic rebalancing.
func WithRebalanceEvery(n int) Option {
	return func(o *options) { o.rebalanceEvery = n }
}

// WithMaxRetainedText stops recording text payloads in the session patch once
// they add up to more than limit bytes. Zero means no limit. Undo history
// always keeps its text.
func WithMaxRetainedText(limit uint64) Option {
	return func(o *options) { o.maxRetainedText = limit }
}

// WithSeed seeds the marker index priorities.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithStrategy sets the invalidation strategy of markers added without one.
func WithStrategy(strategy markerindex.Strategy) Option {
	return func(o *options) { o.strategy = strategy }
}

// WithGroupingInterval groups edits made within d of each other into one
// undo step.
func WithGroupingInterval(d time.Duration) Option {
	return func(o *options) { o.groupingInterval = d }
}

// WithMaxUndoEntries caps the undo stack.
func WithMaxUndoEntries(n int) Option {
	return func(o *options) { o.historyOpts = append(o.historyOpts, history.WithMaxUndoEntries(n)) }
}

// WithClock replaces the clock used to timestamp edits.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.historyOpts = append(o.historyOpts, history.WithClock(now)) }
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTelemetry records a span per operation with tracer and edit metrics
// with metrics. Either may be nil.
func WithTelemetry(tracer trace.Tracer, metrics *observability.EditMetrics) Option {
	return func(o *options) {
		o.tracer = tracer
		o.metrics = metrics
	}
}
