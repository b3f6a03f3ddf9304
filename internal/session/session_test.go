package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/editcore/internal/session"
	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/observability"
	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

func rng(startRow, startCol, endRow, endCol uint32) point.Range {
	return point.Range{Start: point.New(startRow, startCol), End: point.New(endRow, endCol)}
}

func TestEditUndoRedo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("hello world")

	_, err := s.Edit(ctx, rng(0, 0, 0, 5), "howdy")
	require.NoError(t, err)
	assert.Equal(t, "howdy world", s.Text())
	assert.Equal(t, "hello world", s.Original())
	assert.Equal(t, 1, s.Patch().ChangeCount())

	_, err = s.Edit(ctx, rng(0, 11, 0, 11), "\n!")
	require.NoError(t, err)
	assert.Equal(t, "howdy world\n!", s.Text())
	assert.Equal(t, 2, s.UndoDepth())

	result, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changes)
	assert.Equal(t, "howdy world", s.Text())

	_, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello world", s.Text())

	_, err = s.Undo(ctx)
	require.ErrorIs(t, err, session.ErrNothingToUndo)

	_, err = s.Redo(ctx)
	require.NoError(t, err)
	_, err = s.Redo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "howdy world\n!", s.Text())

	_, err = s.Redo(ctx)
	require.ErrorIs(t, err, session.ErrNothingToRedo)
}

func TestEditRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	s := session.New("abc")

	_, err := s.Edit(context.Background(), rng(0, 1, 0, 9), "x")
	require.ErrorIs(t, err, session.ErrInvalidRange)

	_, err = s.Edit(context.Background(), rng(0, 2, 0, 1), "x")
	require.ErrorIs(t, err, session.ErrInvalidRange)
	assert.Equal(t, "abc", s.Text())
	assert.Equal(t, 0, s.UndoDepth())
}

func TestEditInvalidatesOverlappingMarkers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("hello world")

	require.NoError(t, s.AddMarker(ctx, 1, rng(0, 6, 0, 11)))
	require.NoError(t, s.AddMarker(ctx, 2, rng(0, 0, 0, 5)))
	require.NoError(t, s.AddMarker(ctx, 3, rng(0, 9, 0, 10), session.InvalidateWith(markerindex.InvalidateNever)))

	result, err := s.Edit(ctx, rng(0, 2, 0, 8), "X")
	require.NoError(t, err)
	assert.Equal(t, "heXrld", s.Text())

	assert.Equal(t, markerindex.Overlap, result.Splice.Relation(1))
	assert.Equal(t, markerindex.Overlap, result.Splice.Relation(2))
	assert.Equal(t, markerindex.Disjoint, result.Splice.Relation(3))
	assert.Equal(t, []markerindex.ID{1, 2}, result.Invalidated.Slice())
	assert.Equal(t, []markerindex.ID{1, 2}, s.Invalid().Slice())

	m2, err := s.Marker(2)
	require.NoError(t, err)
	assert.Equal(t, rng(0, 0, 0, 3), m2.Range)
	assert.False(t, m2.Valid)

	m1, err := s.Marker(1)
	require.NoError(t, err)
	assert.Equal(t, rng(0, 3, 0, 6), m1.Range)

	m3, err := s.Marker(3)
	require.NoError(t, err)
	assert.Equal(t, rng(0, 4, 0, 5), m3.Range)
	assert.True(t, m3.Valid)

	markers := s.Markers()
	require.Len(t, markers, 3)
	assert.Equal(t, markerindex.ID(2), markers[0].ID)
}

func TestPerMarkerStrategy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("hello world")

	require.NoError(t, s.AddMarker(ctx, 1, rng(0, 0, 0, 5), session.Exclusive(true),
		session.InvalidateWith(markerindex.InvalidateTouch)))
	require.NoError(t, s.AddMarker(ctx, 2, rng(0, 0, 0, 5), session.Exclusive(true)))

	result, err := s.Edit(ctx, rng(0, 5, 0, 5), ",")
	require.NoError(t, err)

	assert.Equal(t, markerindex.Touch, result.Splice.Relation(1))
	assert.Equal(t, []markerindex.ID{1}, result.Invalidated.Slice())

	m2, err := s.Marker(2)
	require.NoError(t, err)
	assert.Equal(t, rng(0, 0, 0, 5), m2.Range)
	assert.True(t, m2.Valid)
	assert.True(t, m2.Exclusive)
	assert.Equal(t, markerindex.InvalidateOverlap, m2.Invalidate)
}

func TestMarkersListsEveryMarkerInDocumentOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("hello world")

	require.NoError(t, s.AddMarker(ctx, 3, rng(0, 6, 0, 11)))
	require.NoError(t, s.AddMarker(ctx, 1, rng(0, 0, 0, 5), session.Exclusive(true)))
	require.NoError(t, s.AddMarker(ctx, 2, rng(0, 0, 0, 11), session.InvalidateWith(markerindex.InvalidateNever)))

	markers := s.Markers()
	require.Len(t, markers, 3)

	ids := make([]markerindex.ID, 0, len(markers))
	for _, m := range markers {
		ids = append(ids, m.ID)

		single, err := s.Marker(m.ID)
		require.NoError(t, err)
		assert.Equal(t, single, m)
	}

	assert.Equal(t, []markerindex.ID{2, 1, 3}, ids)
	assert.True(t, markers[1].Exclusive)
	assert.Equal(t, markerindex.InvalidateNever, markers[0].Invalidate)
}

func TestMarkerErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("abc")

	require.NoError(t, s.AddMarker(ctx, 1, rng(0, 0, 0, 1)))
	require.ErrorIs(t, s.AddMarker(ctx, 1, rng(0, 0, 0, 1)), session.ErrDuplicateMarker)
	require.ErrorIs(t, s.AddMarker(ctx, 2, rng(1, 0, 1, 0)), session.ErrInvalidRange)
	require.ErrorIs(t, s.RemoveMarker(ctx, 2), session.ErrUnknownMarker)

	require.NoError(t, s.RemoveMarker(ctx, 1))
	_, err := s.Marker(1)
	require.ErrorIs(t, err, session.ErrUnknownMarker)
	assert.False(t, s.Index().Has(1))
}

func TestRevertToCheckpoint(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("one two three")

	_, err := s.Edit(ctx, rng(0, 0, 0, 3), "1")
	require.NoError(t, err)

	checkpoint := s.Checkpoint(false)

	_, err = s.Edit(ctx, rng(0, 2, 0, 5), "2")
	require.NoError(t, err)
	_, err = s.Edit(ctx, rng(0, 4, 0, 9), "3")
	require.NoError(t, err)
	assert.Equal(t, "1 2 3", s.Text())

	result, err := s.RevertToCheckpoint(ctx, checkpoint)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Changes)
	assert.Equal(t, "1 two three", s.Text())

	_, err = s.RevertToCheckpoint(ctx, 99)
	require.ErrorIs(t, err, session.ErrUnknownCheckpoint)
}

func TestGrouping(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	s := session.New("", session.WithGroupingInterval(300*time.Millisecond), session.WithClock(clock))

	for i, word := range []string{"a", "b", "c"} {
		_, err := s.Edit(ctx, rng(0, uint32(i), 0, uint32(i)), word)
		require.NoError(t, err)

		now = now.Add(100 * time.Millisecond)
	}

	assert.Equal(t, 1, s.UndoDepth())

	checkpoint := s.Checkpoint(false)

	now = now.Add(time.Second)
	_, err := s.Edit(ctx, rng(0, 3, 0, 3), "d")
	require.NoError(t, err)
	_, err = s.Edit(ctx, rng(0, 0, 0, 0), ">")
	require.NoError(t, err)

	require.NoError(t, s.GroupChangesSinceCheckpoint(checkpoint, true))
	require.ErrorIs(t, s.GroupChangesSinceCheckpoint(checkpoint, false), session.ErrUnknownCheckpoint)
	assert.Equal(t, 2, s.UndoDepth())

	_, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", s.Text())

	assert.False(t, s.GroupLastChanges())

	_, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.Empty(t, s.Text())
}

func TestMaxRetainedText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("abc", session.WithMaxRetainedText(4))

	_, err := s.Edit(ctx, rng(0, 0, 0, 1), "x")
	require.NoError(t, err)
	assert.True(t, s.RetainsText())

	_, err = s.Edit(ctx, rng(0, 3, 0, 3), "defgh")
	require.NoError(t, err)
	assert.False(t, s.RetainsText())

	changes := s.Patch().Changes()
	require.Len(t, changes, 2)
	assert.NotNil(t, changes[0].NewText)
	assert.Nil(t, changes[1].NewText)
	assert.Equal(t, uint32(0), changes[1].OldTextSize)

	_, err = s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "xbc", s.Text())
}

func TestRebalanceEvery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New("abcdefghijklmnopqrstuvwxyz", session.WithRebalanceEvery(10))

	for i := range 10 {
		col := uint32(2 * i)

		_, err := s.Edit(ctx, rng(0, col, 0, col+1), "X")
		require.NoError(t, err)
	}

	assert.Equal(t, 10, s.Patch().ChangeCount())
	assert.Equal(t, 4, s.Patch().Depth())
}

func TestTelemetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewEditMetrics(mp.Meter("test"))
	require.NoError(t, err)

	s := session.New("hello", session.WithTelemetry(tp.Tracer("test"), metrics))

	require.NoError(t, s.AddMarker(ctx, 1, rng(0, 1, 0, 4)))

	_, err = s.Edit(ctx, rng(0, 2, 0, 5), "")
	require.NoError(t, err)

	_, err = s.Edit(ctx, rng(0, 9, 0, 9), "")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, observability.SpanEdit, spans[0].Name)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(ctx, &rm))

	names := make(map[string]bool)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}

	assert.True(t, names["editcore.ops.total"])
	assert.True(t, names["editcore.errors.total"])
	assert.True(t, names["editcore.markers.invalidated.total"])
	assert.True(t, names["editcore.patch.hunks"])
	assert.True(t, names["editcore.markers.live"])
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	s := session.New("hello world")

	_, err := s.Edit(context.Background(), rng(0, 6, 0, 11), "there")
	require.NoError(t, err)

	for _, compress := range []bool{false, true} {
		decoded, err := patch.Deserialize(s.Serialize(compress))
		require.NoError(t, err)
		assert.Equal(t, s.Patch().Changes(), decoded.Changes())
	}
}
