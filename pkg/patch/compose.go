package patch

import "slices"

// Combine folds other into p so that p becomes the patch applying p and then
// other. other's hunks are replayed front to back at their new starts when
// leftToRight is set, and back to front at their old starts otherwise; both
// orders produce the same mapping. It returns false when a replayed hunk's
// old text disagrees with what p recorded, leaving the hunks replayed so far
// in place.
func (p *Patch) Combine(other *Patch, leftToRight bool) bool {
	changes := other.Changes()

	if leftToRight {
		for _, change := range changes {
			if !p.Splice(change.NewStart, change.OldExtent(), change.NewExtent(),
				change.OldText, change.NewText, change.OldTextSize) {
				return false
			}
		}

		return true
	}

	for _, change := range slices.Backward(changes) {
		if !p.Splice(change.OldStart, change.OldExtent(), change.NewExtent(),
			change.OldText, change.NewText, change.OldTextSize) {
			return false
		}
	}

	return true
}

// Compose returns a new patch equivalent to applying patches in order. The
// merge mode of the first patch is kept.
func Compose(patches []*Patch) (*Patch, bool) {
	var opts []Option
	if len(patches) > 0 {
		opts = append(opts, WithMergeAdjacentChanges(patches[0].mergesAdjacentChanges))
	}

	result := New(opts...)

	for _, p := range patches {
		if !result.Combine(p, true) {
			return nil, false
		}
	}

	return result, true
}
