package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

func apply(t *testing.T, doc string, p *patch.Patch) string {
	t.Helper()

	current := text.New(doc)

	for _, change := range p.Changes() {
		next, ok := current.Splice(change.NewStart, change.OldExtent(), change.NewText)
		require.True(t, ok)

		current = next
	}

	return current.String()
}

// The edits below take "abc" to "Xabc", "XaYYc" and "aYYc".
func pushA(h *History) {
	h.PushChange(point.Zero, point.Zero, point.New(0, 1), text.New(""), text.New("X"))
}

func pushB(h *History) {
	h.PushChange(point.New(0, 2), point.New(0, 1), point.New(0, 2), text.New("b"), text.New("YY"))
}

func pushC(h *History) {
	h.PushChange(point.Zero, point.New(0, 1), point.Zero, text.New("X"), text.New(""))
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestUndoRedo(t *testing.T) {
	t.Parallel()

	h := New()
	pushA(h)
	pushB(h)

	undo, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "Xabc", apply(t, "XaYYc", undo))
	assert.Equal(t, 1, h.UndoDepth())
	assert.Equal(t, 1, h.RedoDepth())

	undo, ok = h.Undo()
	require.True(t, ok)
	assert.Equal(t, "abc", apply(t, "Xabc", undo))

	_, ok = h.Undo()
	assert.False(t, ok)

	redo, ok := h.Redo()
	require.True(t, ok)
	assert.Equal(t, "Xabc", apply(t, "abc", redo))

	redo, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, "XaYYc", apply(t, "Xabc", redo))

	_, ok = h.Redo()
	assert.False(t, ok)
	assert.Equal(t, 2, h.UndoDepth())
}

func TestPushClearsRedo(t *testing.T) {
	t.Parallel()

	h := New()
	pushA(h)

	_, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, 1, h.RedoDepth())

	pushA(h)
	assert.Equal(t, 0, h.RedoDepth())
}

func TestBarrierStopsUndo(t *testing.T) {
	t.Parallel()

	h := New()
	pushA(h)
	h.CreateCheckpoint(true)
	pushB(h)

	_, ok := h.Undo()
	require.True(t, ok)

	_, ok = h.Undo()
	assert.False(t, ok)
	assert.Equal(t, 1, h.UndoDepth())
	assert.False(t, h.GroupLastChanges())
}

func TestRedoRestoresCheckpoints(t *testing.T) {
	t.Parallel()

	h := New()
	pushA(h)

	checkpoint := h.CreateCheckpoint(false)

	_, ok := h.Undo()
	require.True(t, ok)

	_, ok = h.Redo()
	require.True(t, ok)

	pushB(h)
	assert.True(t, h.GroupChangesSinceCheckpoint(checkpoint, false))
}

func TestGroupChangesSinceCheckpoint(t *testing.T) {
	t.Parallel()

	h := New()
	checkpoint := h.CreateCheckpoint(false)
	pushA(h)
	pushB(h)
	pushC(h)

	require.True(t, h.GroupChangesSinceCheckpoint(checkpoint, true))
	assert.Equal(t, 1, h.UndoDepth())
	assert.False(t, h.GroupChangesSinceCheckpoint(checkpoint, false), "checkpoint was deleted")

	undo, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "abc", apply(t, "aYYc", undo))

	assert.False(t, h.GroupChangesSinceCheckpoint(12345, false))
}

func TestGroupChangesStopsAtBarrier(t *testing.T) {
	t.Parallel()

	h := New()
	checkpoint := h.CreateCheckpoint(false)
	pushA(h)
	h.CreateCheckpoint(true)
	pushB(h)

	assert.False(t, h.GroupChangesSinceCheckpoint(checkpoint, false))
	assert.Equal(t, 2, h.UndoDepth())
}

func TestGroupLastChanges(t *testing.T) {
	t.Parallel()

	h := New()
	pushA(h)
	h.CreateCheckpoint(false)
	pushB(h)

	require.True(t, h.GroupLastChanges())
	assert.Equal(t, 1, h.UndoDepth())
	assert.Len(t, h.undo, 1)

	redo := h.undo[0].patch
	assert.Equal(t, "XaYYc", apply(t, "abc", redo))
	assert.False(t, h.GroupLastChanges())
}

func TestApplyGroupingInterval(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	h := New(WithClock(clock.Now))

	pushA(h)
	h.ApplyGroupingInterval(300 * time.Millisecond)

	clock.advance(100 * time.Millisecond)
	pushB(h)
	h.ApplyGroupingInterval(300 * time.Millisecond)
	assert.Equal(t, 1, h.UndoDepth())

	clock.advance(time.Second)
	pushC(h)
	h.ApplyGroupingInterval(300 * time.Millisecond)
	assert.Equal(t, 2, h.UndoDepth())

	undo, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "XaYYc", apply(t, "aYYc", undo))

	undo, ok = h.Undo()
	require.True(t, ok)
	assert.Equal(t, "abc", apply(t, "XaYYc", undo))
}

func TestZeroGroupingIntervalNeverGroups(t *testing.T) {
	t.Parallel()

	h := New(WithClock(func() time.Time { return time.Time{} }))
	pushA(h)
	h.ApplyGroupingInterval(0)
	pushB(h)
	h.ApplyGroupingInterval(0)

	assert.Equal(t, 2, h.UndoDepth())
}

func TestRevertToCheckpoint(t *testing.T) {
	t.Parallel()

	h := New()
	pushA(h)

	checkpoint := h.CreateCheckpoint(false)
	pushB(h)
	pushC(h)

	revert, ok := h.RevertToCheckpoint(checkpoint)
	require.True(t, ok)
	assert.Equal(t, "Xabc", apply(t, "aYYc", revert))
	assert.Equal(t, 1, h.UndoDepth())

	revert, ok = h.RevertToCheckpoint(checkpoint)
	require.True(t, ok)
	assert.Equal(t, 0, revert.ChangeCount())

	_, ok = h.RevertToCheckpoint(999)
	assert.False(t, ok)
}

func TestMaxUndoEntries(t *testing.T) {
	t.Parallel()

	h := New(WithMaxUndoEntries(2))
	pushA(h)
	pushB(h)
	pushC(h)

	assert.Equal(t, 2, h.UndoDepth())

	h.Clear()
	assert.Equal(t, 0, h.UndoDepth())
	assert.Equal(t, 0, h.RedoDepth())
}
