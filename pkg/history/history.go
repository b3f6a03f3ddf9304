// Package history keeps undo and redo stacks of patches separated by
// checkpoints. Undoing yields the inverse of the most recent patch, ready to
// be applied to the current document; redoing yields the patch again.
package history

import (
	"slices"
	"time"

	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

// DefaultMaxUndoEntries bounds the undo stack unless overridden.
const DefaultMaxUndoEntries = 10000

type entry struct {
	// patch is nil for checkpoints.
	patch *patch.Patch

	checkpoint uint32
	barrier    bool

	groupingInterval time.Duration
	timestamp        time.Time
}

func (e *entry) isCheckpoint() bool {
	return e.patch == nil
}

// groupsWith reports whether next was recorded soon enough after e to be
// merged with it.
func (e *entry) groupsWith(next *entry) bool {
	return next.timestamp.Sub(e.timestamp) < min(e.groupingInterval, next.groupingInterval)
}

// History is an undo/redo stack. It is not safe for concurrent use.
type History struct {
	undo, redo     []entry
	nextCheckpoint uint32
	maxUndoEntries int
	now            func() time.Time
}

// Option configures a History.
type Option func(*History)

// WithMaxUndoEntries caps the number of entries kept on the undo stack. The
// oldest entries are dropped first.
func WithMaxUndoEntries(n int) Option {
	return func(h *History) {
		h.maxUndoEntries = n
	}
}

// WithClock replaces the clock used to timestamp pushed patches.
func WithClock(now func() time.Time) Option {
	return func(h *History) {
		h.now = now
	}
}

// New returns an empty history.
func New(opts ...Option) *History {
	h := &History{
		nextCheckpoint: 1,
		maxUndoEntries: DefaultMaxUndoEntries,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// CreateCheckpoint pushes a checkpoint and returns its id. Undo never moves
// past a barrier checkpoint, and grouping never merges across one.
func (h *History) CreateCheckpoint(barrier bool) uint32 {
	id := h.nextCheckpoint
	h.nextCheckpoint++

	h.undo = append(h.undo, entry{checkpoint: id, barrier: barrier})
	h.enforceLimit()

	return id
}

// PushChange records a single edit, expressed in the coordinates of the
// document before the edit.
func (h *History) PushChange(start, oldExtent, newExtent point.Point, oldText, newText *text.Text) {
	p := patch.New()

	var oldSize uint32
	if oldText != nil {
		oldSize = oldText.SizeUint32()
	}

	p.Splice(start, oldExtent, newExtent, oldText, newText, oldSize)
	h.PushPatch(p)
}

// PushPatch records p as the most recent transaction and clears the redo
// stack.
func (h *History) PushPatch(p *patch.Patch) {
	h.undo = append(h.undo, entry{patch: p, timestamp: h.now()})
	h.redo = nil
	h.enforceLimit()
}

func (h *History) enforceLimit() {
	if h.maxUndoEntries > 0 && len(h.undo) > h.maxUndoEntries {
		h.undo = slices.Delete(h.undo, 0, len(h.undo)-h.maxUndoEntries)
	}
}

// GroupChangesSinceCheckpoint composes every patch pushed after checkpoint id
// into one. With deleteCheckpoint set, the checkpoint itself is removed. It
// returns false when the checkpoint is not on the undo stack above the most
// recent barrier.
func (h *History) GroupChangesSinceCheckpoint(id uint32, deleteCheckpoint bool) bool {
	index := -1

	var patches []*patch.Patch

	for i := len(h.undo) - 1; i >= 0; i-- {
		e := &h.undo[i]

		if e.isCheckpoint() {
			if e.checkpoint == id {
				index = i

				break
			}

			if e.barrier {
				return false
			}

			continue
		}

		patches = append(patches, e.patch)
	}

	if index < 0 {
		return false
	}

	if len(patches) > 0 {
		slices.Reverse(patches)

		composed, ok := patch.Compose(patches)
		if !ok {
			return false
		}

		top := h.undo[len(h.undo)-1]
		h.undo = append(h.undo[:index+1], entry{patch: composed, timestamp: top.timestamp})
	}

	if deleteCheckpoint {
		h.undo = slices.Delete(h.undo, index, index+1)
	}

	return true
}

// GroupLastChanges merges the two most recent patches, dropping any
// checkpoints between them. It returns false when there are fewer than two
// patches above the most recent barrier.
func (h *History) GroupLastChanges() bool {
	last := -1

	for i := len(h.undo) - 1; i >= 0; i-- {
		e := &h.undo[i]

		if e.isCheckpoint() {
			if e.barrier {
				return false
			}

			continue
		}

		if last < 0 {
			last = i

			continue
		}

		grouped, ok := h.group(e, &h.undo[last])
		if !ok {
			return false
		}

		h.undo = slices.Replace(h.undo, i, last+1, grouped)

		return true
	}

	return false
}

// ApplyGroupingInterval sets the grouping interval of the most recent patch
// and merges it into the previous one when both were pushed within each
// other's interval.
func (h *History) ApplyGroupingInterval(interval time.Duration) {
	n := len(h.undo)
	if n == 0 || h.undo[n-1].isCheckpoint() {
		return
	}

	top := &h.undo[n-1]
	top.groupingInterval = interval

	if interval == 0 || n < 2 {
		return
	}

	previous := &h.undo[n-2]
	if previous.isCheckpoint() || !previous.groupsWith(top) {
		return
	}

	grouped, ok := h.group(previous, top)
	if ok {
		h.undo = slices.Replace(h.undo, n-2, n, grouped)
	}
}

func (h *History) group(first, second *entry) (entry, bool) {
	composed, ok := patch.Compose([]*patch.Patch{first.patch, second.patch})
	if !ok {
		return entry{}, false
	}

	return entry{
		patch:            composed,
		groupingInterval: second.groupingInterval,
		timestamp:        second.timestamp,
	}, true
}

// Undo pops the most recent patch and returns its inverse. Checkpoints above
// it move to the redo stack with it. ok is false when there is nothing to
// undo before the most recent barrier.
func (h *History) Undo() (*patch.Patch, bool) {
	for i := len(h.undo) - 1; i >= 0; i-- {
		e := &h.undo[i]

		if e.isCheckpoint() {
			if e.barrier {
				return nil, false
			}

			continue
		}

		inverted := e.patch.Invert()

		moved := h.undo[i:]
		for j := len(moved) - 1; j >= 0; j-- {
			h.redo = append(h.redo, moved[j])
		}

		h.undo = h.undo[:i:i]

		return inverted, true
	}

	return nil, false
}

// Redo reapplies the most recently undone patch and returns a copy of it,
// restoring the checkpoints that preceded it.
func (h *History) Redo() (*patch.Patch, bool) {
	for i := len(h.redo) - 1; i >= 0; i-- {
		e := &h.redo[i]
		if e.isCheckpoint() {
			continue
		}

		result := e.patch.Copy()

		for i > 0 && h.redo[i-1].isCheckpoint() {
			i--
		}

		moved := h.redo[i:]
		for j := len(moved) - 1; j >= 0; j-- {
			h.undo = append(h.undo, moved[j])
		}

		h.redo = h.redo[:i:i]

		return result, true
	}

	return nil, false
}

// RevertToCheckpoint discards every patch pushed after checkpoint id and
// returns the patch that undoes them all. The checkpoint stays on the stack.
// ok is false when the checkpoint is not reachable without crossing a
// barrier.
func (h *History) RevertToCheckpoint(id uint32) (*patch.Patch, bool) {
	var inverted []*patch.Patch

	for i := len(h.undo) - 1; i >= 0; i-- {
		e := &h.undo[i]

		if e.isCheckpoint() {
			if e.checkpoint == id {
				reverted, ok := patch.Compose(inverted)
				if !ok {
					return nil, false
				}

				h.undo = h.undo[: i+1 : i+1]

				return reverted, true
			}

			if e.barrier {
				return nil, false
			}

			continue
		}

		inverted = append(inverted, e.patch.Invert())
	}

	return nil, false
}

// Clear empties both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// UndoDepth is the number of patches on the undo stack.
func (h *History) UndoDepth() int {
	return countPatches(h.undo)
}

// RedoDepth is the number of patches on the redo stack.
func (h *History) RedoDepth() int {
	return countPatches(h.redo)
}

func countPatches(entries []entry) int {
	count := 0

	for i := range entries {
		if !entries[i].isCheckpoint() {
			count++
		}
	}

	return count
}
