package markerindex

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// ID identifies a marker.
type ID uint32

// Set is an immutable sorted set of marker ids returned by queries.
type Set struct {
	ids []ID
}

// NewSet builds a set from ids in any order, dropping duplicates.
func NewSet(ids ...ID) Set {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	return Set{ids: slices.Compact(sorted)}
}

func setOf(collected map[ID]struct{}) Set {
	return Set{ids: slices.Sorted(maps.Keys(collected))}
}

// Contains reports whether id is in the set.
func (s Set) Contains(id ID) bool {
	_, found := slices.BinarySearch(s.ids, id)

	return found
}

// Len is the number of ids.
func (s Set) Len() int {
	return len(s.ids)
}

// All yields the ids in ascending order.
func (s Set) All() iter.Seq[ID] {
	return slices.Values(s.ids)
}

// Slice returns the ids in ascending order.
func (s Set) Slice() []ID {
	return slices.Clone(s.ids)
}

// Union returns the ids in s or other.
func (s Set) Union(other Set) Set {
	return NewSet(slices.Concat(s.ids, other.ids)...)
}

// Intersect returns the ids in both s and other.
func (s Set) Intersect(other Set) Set {
	var result []ID

	for _, id := range s.ids {
		if other.Contains(id) {
			result = append(result, id)
		}
	}

	return Set{ids: result}
}

// Difference returns the ids in s that are not in other.
func (s Set) Difference(other Set) Set {
	var result []ID

	for _, id := range s.ids {
		if !other.Contains(id) {
			result = append(result, id)
		}
	}

	return Set{ids: result}
}

// String formats the set as "[1 2 3]".
func (s Set) String() string {
	return fmt.Sprint(s.ids)
}

// MarshalJSON encodes the set as an array.
func (s Set) MarshalJSON() ([]byte, error) {
	ids := s.ids
	if ids == nil {
		ids = []ID{}
	}

	data, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("marshal marker set: %w", err)
	}

	return data, nil
}

// idSet is the mutable sorted id list stored on tree nodes.
type idSet []ID

func (s *idSet) add(id ID) {
	pos, found := slices.BinarySearch(*s, id)
	if !found {
		*s = slices.Insert(*s, pos, id)
	}
}

func (s *idSet) addAll(other idSet) {
	for _, id := range other {
		s.add(id)
	}
}

func (s *idSet) remove(id ID) {
	pos, found := slices.BinarySearch(*s, id)
	if found {
		*s = slices.Delete(*s, pos, pos+1)
	}
}

func (s idSet) has(id ID) bool {
	_, found := slices.BinarySearch(s, id)

	return found
}

func (s idSet) set() Set {
	return Set{ids: slices.Clone(s)}
}

// collector accumulates query results.
type collector map[ID]struct{}

func (c collector) addAll(ids idSet) {
	for _, id := range ids {
		c[id] = struct{}{}
	}
}
