package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/point"
)

// Marker is a snapshot of one marker.
type Marker struct {
	ID         markerindex.ID       `json:"id"`
	Range      point.Range          `json:"range"`
	Exclusive  bool                 `json:"exclusive"`
	Invalidate markerindex.Strategy `json:"invalidate"`
	Valid      bool                 `json:"valid"`
}

type markerOptions struct {
	exclusive bool
	strategy  markerindex.Strategy
}

// MarkerOption configures a marker added with AddMarker.
type MarkerOption func(*markerOptions)

// Exclusive makes insertions at the marker's boundaries fall outside it.
func Exclusive(exclusive bool) MarkerOption {
	return func(o *markerOptions) { o.exclusive = exclusive }
}

// InvalidateWith overrides the session's invalidation strategy for one marker.
func InvalidateWith(strategy markerindex.Strategy) MarkerOption {
	return func(o *markerOptions) { o.strategy = strategy }
}

// AddMarker anchors a new marker to r.
func (s *Session) AddMarker(ctx context.Context, id markerindex.ID, r point.Range, opts ...MarkerOption) error {
	if _, exists := s.markers[id]; exists {
		return fmt.Errorf("%w: %d", ErrDuplicateMarker, id)
	}

	if !s.validRange(r) {
		return fmt.Errorf("%w: marker %d at %v", ErrInvalidRange, id, r)
	}

	o := markerOptions{strategy: s.opts.strategy}
	for _, opt := range opts {
		opt(&o)
	}

	s.index.Insert(id, r.Start, r.End)
	s.index.SetExclusive(id, o.exclusive)
	s.markers[id] = &marker{strategy: o.strategy, valid: true}

	if s.opts.metrics != nil {
		s.opts.metrics.AddMarkers(ctx, 1)
	}

	return nil
}

// RemoveMarker drops a marker.
func (s *Session) RemoveMarker(ctx context.Context, id markerindex.ID) error {
	if _, exists := s.markers[id]; !exists {
		return fmt.Errorf("%w: %d", ErrUnknownMarker, id)
	}

	s.index.Remove(id)
	delete(s.markers, id)

	if s.opts.metrics != nil {
		s.opts.metrics.AddMarkers(ctx, -1)
	}

	return nil
}

// Marker returns the current state of a marker.
func (s *Session) Marker(id markerindex.ID) (Marker, error) {
	m, exists := s.markers[id]
	if !exists {
		return Marker{}, fmt.Errorf("%w: %d", ErrUnknownMarker, id)
	}

	return s.describe(id, m), nil
}

func (s *Session) describe(id markerindex.ID, m *marker) Marker {
	return Marker{
		ID:         id,
		Range:      s.index.Range(id),
		Exclusive:  s.index.IsExclusive(id),
		Invalidate: m.strategy,
		Valid:      m.valid,
	}
}

// Markers returns every marker in document order.
func (s *Session) Markers() []Marker {
	ids := make([]markerindex.ID, 0, len(s.markers))
	for id := range s.markers {
		ids = append(ids, id)
	}

	slices.Sort(ids)
	slices.SortStableFunc(ids, s.index.Compare)

	result := make([]Marker, 0, len(ids))

	for _, id := range ids {
		result = append(result, s.describe(id, s.markers[id]))
	}

	return result
}

// Invalid returns the markers invalidated since they were added.
func (s *Session) Invalid() markerindex.Set {
	var ids []markerindex.ID

	for id, m := range s.markers {
		if !m.valid {
			ids = append(ids, id)
		}
	}

	return markerindex.NewSet(ids...)
}
