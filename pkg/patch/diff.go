package patch

import (
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/editcore/pkg/point"
	"github.com/Sumatoshi-tech/editcore/pkg/text"
)

// DiffMode selects the granularity of Diff.
type DiffMode int

const (
	// ByCharacter diffs individual characters.
	ByCharacter DiffMode = iota
	// ByLine diffs whole lines, which is much faster on large inputs.
	ByLine
)

// Diff returns the patch that turns oldText into newText.
func Diff(oldText, newText string, mode DiffMode) *Patch {
	dmp := diffmatchpatch.New()

	var diffs []diffmatchpatch.Diff

	if mode == ByLine {
		src, dst, lines := dmp.DiffLinesToChars(oldText, newText)
		diffs = dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)
	} else {
		diffs = dmp.DiffMain(oldText, newText, false)
	}

	return FromDiffs(dmp.DiffCleanupMerge(dmp.DiffCleanupSemanticLossless(diffs)))
}

// FromDiffs builds a patch from a diffmatchpatch diff. Adjacent deletions and
// insertions merge into a single hunk.
func FromDiffs(diffs []diffmatchpatch.Diff) *Patch {
	p := New()
	empty := text.New("")
	position := point.Zero

	for _, diff := range diffs {
		payload := text.New(diff.Text)

		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			position = position.Traverse(payload.Extent())
		case diffmatchpatch.DiffDelete:
			p.Splice(position, payload.Extent(), point.Zero, payload, empty, payload.SizeUint32())
		case diffmatchpatch.DiffInsert:
			p.Splice(position, point.Zero, payload.Extent(), empty, payload, 0)
			position = position.Traverse(payload.Extent())
		}
	}

	return p
}
