// Package session ties a document to the structures that follow its edits:
// a patch of every change since the document was opened, a marker index that
// keeps ranges anchored to the text, and an undo history.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/editcore/pkg/history"
	"github.com/Sumatoshi-tech/editcore/pkg/markerindex"
	"github.com/Sumatoshi-tech/editcore/pkg/observability"
	"github.com/Sumatoshi-tech/editcore/pkg/patch"
	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

// Operation names used in spans, logs and metrics.
const (
	OpEdit   = "edit"
	OpUndo   = "undo"
	OpRedo   = "redo"
	OpRevert = "revert"
)

// Sentinel errors.
var (
	ErrInvalidRange      = errors.New("range is outside the document")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrNothingToRedo     = errors.New("nothing to redo")
	ErrUnknownCheckpoint = errors.New("unknown checkpoint")
	ErrUnknownMarker     = errors.New("unknown marker")
	ErrDuplicateMarker   = errors.New("marker already exists")
	ErrMissingText       = errors.New("patch does not carry its text")
)

// EditResult describes how one edit affected the markers.
type EditResult struct {
	Splice      markerindex.SpliceResult `json:"splice"`
	Invalidated markerindex.Set          `json:"invalidated"`
}

// ReplayResult describes the application of a patch from the history.
type ReplayResult struct {
	Changes     int             `json:"changes"`
	Invalidated markerindex.Set `json:"invalidated"`
}

type marker struct {
	strategy markerindex.Strategy
	valid    bool
}

// Session is an editable document. It is not safe for concurrent use.
type Session struct {
	opts options

	base, doc *text.Text
	patch     *patch.Patch
	index     *markerindex.Index
	markers   map[markerindex.ID]*marker
	history   *history.History

	editsSinceRebalance int
	retainedText        uint64
	retaining           bool
}

// New opens a session on initial.
func New(initial string, opts ...Option) *Session {
	o := options{
		mergeAdjacent: true,
		seed:          1,
		strategy:      markerindex.InvalidateOverlap,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	if o.tracer == nil {
		o.tracer = nooptrace.NewTracerProvider().Tracer("editcore")
	}

	doc := text.New(initial)

	return &Session{
		opts:      o,
		base:      doc,
		doc:       doc,
		patch:     patch.New(patch.WithMergeAdjacentChanges(o.mergeAdjacent)),
		index:     markerindex.New(o.seed),
		markers:   make(map[markerindex.ID]*marker),
		history:   history.New(o.historyOpts...),
		retaining: true,
	}
}

// Text is the current document.
func (s *Session) Text() string {
	return s.doc.String()
}

// Original is the document as it was opened.
func (s *Session) Original() string {
	return s.base.String()
}

// Patch is the patch from the original document to the current one. The
// caller must not modify it.
func (s *Session) Patch() *patch.Patch {
	return s.patch
}

// Index is the marker index. The caller must not modify it.
func (s *Session) Index() *markerindex.Index {
	return s.index
}

// UndoDepth is the number of undoable edits.
func (s *Session) UndoDepth() int {
	return s.history.UndoDepth()
}

// RedoDepth is the number of redoable edits.
func (s *Session) RedoDepth() int {
	return s.history.RedoDepth()
}

// RetainsText reports whether the session patch still records text payloads.
func (s *Session) RetainsText() bool {
	return s.retaining
}

func (s *Session) validRange(r point.Range) bool {
	return r.Start.LessEq(r.End) && s.doc.IsValidPosition(r.Start) && s.doc.IsValidPosition(r.End)
}

// Edit replaces r with replacement.
func (s *Session) Edit(ctx context.Context, r point.Range, replacement string) (EditResult, error) {
	ctx, span := s.opts.tracer.Start(ctx, observability.SpanEdit)
	defer span.End()

	started := time.Now()

	if !s.validRange(r) {
		err := fmt.Errorf("%w: %v", ErrInvalidRange, r)
		s.finish(ctx, span, OpEdit, started, err)

		return EditResult{}, err
	}

	deleted, _ := s.doc.Slice(r.Start, r.End)
	inserted := text.New(replacement)

	result := s.splice(ctx, r.Start, deleted, inserted)

	s.history.PushChange(r.Start, deleted.Extent(), inserted.Extent(), deleted, inserted)
	s.history.ApplyGroupingInterval(s.opts.groupingInterval)

	span.SetAttributes(
		attribute.Int("markers.related", result.Splice.Len()),
		attribute.Int("markers.invalidated", result.Invalidated.Len()),
	)
	s.finish(ctx, span, OpEdit, started, nil)

	s.opts.logger.DebugContext(ctx, "edit applied",
		"range", r.String(),
		"patch.hunks", s.patch.ChangeCount(),
		"markers.invalidated", result.Invalidated.Len())

	return result, nil
}

// splice applies one replacement to the document, the session patch and the
// marker index.
func (s *Session) splice(ctx context.Context, start point.Point, deleted, inserted *text.Text) EditResult {
	oldExtent, newExtent := deleted.Extent(), inserted.Extent()

	next, ok := s.doc.Splice(start, oldExtent, inserted)
	if !ok {
		panic(fmt.Sprintf("session: splice at %v outside the document", start))
	}

	hunks := s.patch.ChangeCount()

	s.record(ctx, start, deleted, inserted)
	s.doc = next

	if s.opts.metrics != nil {
		s.opts.metrics.AddHunks(ctx, s.patch.ChangeCount()-hunks)
	}

	result := s.index.Splice(start, oldExtent, newExtent)

	return EditResult{Splice: result, Invalidated: s.invalidate(ctx, result)}
}

func (s *Session) record(ctx context.Context, start point.Point, deleted, inserted *text.Text) {
	oldExtent, newExtent := deleted.Extent(), inserted.Extent()
	size := uint64(deleted.Size()) + uint64(inserted.Size())

	if s.retaining && s.opts.maxRetainedText > 0 && s.retainedText+size > s.opts.maxRetainedText {
		s.retaining = false
		s.opts.logger.InfoContext(ctx, "text retention disabled",
			"patch.max_retained_text", humanize.IBytes(s.opts.maxRetainedText))
	}

	recorded := false

	if s.retaining {
		s.retainedText += size
		recorded = s.patch.Splice(start, oldExtent, newExtent, deleted, inserted, deleted.SizeUint32())
	}

	if !recorded {
		s.patch.Splice(start, oldExtent, newExtent, nil, nil, deleted.SizeUint32())
	}

	s.editsSinceRebalance++
	if s.opts.rebalanceEvery > 0 && s.editsSinceRebalance >= s.opts.rebalanceEvery {
		s.patch.Rebalance()
		s.editsSinceRebalance = 0
	}
}

// invalidate marks the still-valid markers whose own strategy covers their
// relation to the edit.
func (s *Session) invalidate(ctx context.Context, result markerindex.SpliceResult) markerindex.Set {
	var invalidated []markerindex.ID

	byStrategy := make(map[markerindex.Strategy]markerindex.Set)

	for id := range result.Invalidated(markerindex.InvalidateTouch).All() {
		m := s.markers[id]
		if m == nil || !m.valid {
			continue
		}

		set, ok := byStrategy[m.strategy]
		if !ok {
			set = result.Invalidated(m.strategy)
			byStrategy[m.strategy] = set
		}

		if !set.Contains(id) {
			continue
		}

		m.valid = false
		invalidated = append(invalidated, id)

		if s.opts.metrics != nil {
			s.opts.metrics.RecordInvalidated(ctx, result.Relation(id).String(), 1)
		}
	}

	return markerindex.NewSet(invalidated...)
}

// Undo reverts the most recent undo step.
func (s *Session) Undo(ctx context.Context) (ReplayResult, error) {
	ctx, span := s.opts.tracer.Start(ctx, observability.SpanUndo)
	defer span.End()

	return s.replay(ctx, span, OpUndo, func() (*patch.Patch, error) {
		p, ok := s.history.Undo()
		if !ok {
			return nil, ErrNothingToUndo
		}

		return p, nil
	})
}

// Redo reapplies the most recently undone step.
func (s *Session) Redo(ctx context.Context) (ReplayResult, error) {
	ctx, span := s.opts.tracer.Start(ctx, observability.SpanRedo)
	defer span.End()

	return s.replay(ctx, span, OpRedo, func() (*patch.Patch, error) {
		p, ok := s.history.Redo()
		if !ok {
			return nil, ErrNothingToRedo
		}

		return p, nil
	})
}

// RevertToCheckpoint reverts every edit made since checkpoint id.
func (s *Session) RevertToCheckpoint(ctx context.Context, id uint32) (ReplayResult, error) {
	ctx, span := s.opts.tracer.Start(ctx, "editcore.session.revert",
		trace.WithAttributes(attribute.Int64("history.checkpoint", int64(id))))
	defer span.End()

	return s.replay(ctx, span, OpRevert, func() (*patch.Patch, error) {
		p, ok := s.history.RevertToCheckpoint(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownCheckpoint, id)
		}

		return p, nil
	})
}

func (s *Session) replay(
	ctx context.Context, span trace.Span, op string, next func() (*patch.Patch, error),
) (ReplayResult, error) {
	started := time.Now()

	p, err := next()
	if err == nil {
		err = checkText(p)
	}

	if err != nil {
		s.finish(ctx, span, op, started, err)

		return ReplayResult{}, err
	}

	var invalidated markerindex.Set

	changes := p.Changes()
	for _, c := range changes {
		deleted, ok := s.doc.Slice(c.NewStart, c.NewStart.Traverse(c.OldExtent()))
		if !ok {
			panic(fmt.Sprintf("session: history change %v outside the document", c))
		}

		result := s.splice(ctx, c.NewStart, deleted, c.NewText)
		invalidated = invalidated.Union(result.Invalidated)
	}

	span.SetAttributes(attribute.Int("patch.changes", len(changes)))
	s.finish(ctx, span, op, started, nil)

	s.opts.logger.DebugContext(ctx, op+" applied", "patch.changes", len(changes))

	return ReplayResult{Changes: len(changes), Invalidated: invalidated}, nil
}

func checkText(p *patch.Patch) error {
	for c := range p.All() {
		if c.NewText == nil {
			return fmt.Errorf("%w: %v", ErrMissingText, c)
		}
	}

	return nil
}

func (s *Session) finish(ctx context.Context, span trace.Span, op string, started time.Time, err error) {
	status := observability.StatusOK

	if err != nil {
		status = observability.StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if s.opts.metrics != nil {
		s.opts.metrics.RecordOp(ctx, op, status, time.Since(started))
	}
}

// Checkpoint records a checkpoint in the history and returns its id.
func (s *Session) Checkpoint(barrier bool) uint32 {
	return s.history.CreateCheckpoint(barrier)
}

// GroupChangesSinceCheckpoint merges every edit since checkpoint id into a
// single undo step.
func (s *Session) GroupChangesSinceCheckpoint(id uint32, deleteCheckpoint bool) error {
	if !s.history.GroupChangesSinceCheckpoint(id, deleteCheckpoint) {
		return fmt.Errorf("%w: %d", ErrUnknownCheckpoint, id)
	}

	return nil
}

// GroupLastChanges merges the two most recent undo steps.
func (s *Session) GroupLastChanges() bool {
	return s.history.GroupLastChanges()
}

// Serialize encodes the session patch.
func (s *Session) Serialize(compress bool) []byte {
	return s.patch.Serialize(compress)
}
