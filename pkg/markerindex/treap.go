package markerindex

import "math"

func (idx *Index) replaceChild(parent, old, replacement uint32) {
	switch {
	case parent == nilNode:
		idx.root = replacement
	case idx.nd(parent).left == old:
		idx.nd(parent).left = replacement
	default:
		idx.nd(parent).right = replacement
	}
}

// rotateLeft lifts pivot above its parent, of which it is the right child.
// The parent becomes the left ancestor of pivot, so pivot's extent grows by
// the parent's, and coverage sets move to the node whose interval they now
// describe.
func (idx *Index) rotateLeft(pivot uint32) {
	p := idx.nd(pivot)
	rootIdx := p.parent
	r := idx.nd(rootIdx)

	idx.replaceChild(r.parent, rootIdx, pivot)
	p.parent = r.parent

	r.right = p.left
	if r.right != nilNode {
		idx.nd(r.right).parent = rootIdx
	}

	p.left = rootIdx
	r.parent = pivot

	p.leftExtent = r.leftExtent.Traverse(p.leftExtent)
	p.rightIDs.addAll(r.rightIDs)

	kept := p.leftIDs[:0]

	for _, id := range p.leftIDs {
		if r.leftIDs.has(id) {
			r.leftIDs.remove(id)

			kept = append(kept, id)
		} else {
			r.rightIDs.add(id)
		}
	}

	p.leftIDs = kept
}

// rotateRight lifts pivot above its parent, of which it is the left child.
func (idx *Index) rotateRight(pivot uint32) {
	p := idx.nd(pivot)
	rootIdx := p.parent
	r := idx.nd(rootIdx)

	idx.replaceChild(r.parent, rootIdx, pivot)
	p.parent = r.parent

	r.left = p.right
	if r.left != nilNode {
		idx.nd(r.left).parent = rootIdx
	}

	p.right = rootIdx
	r.parent = pivot

	r.leftExtent = r.leftExtent.Traversal(p.leftExtent)
	p.leftIDs.addAll(r.leftIDs)

	kept := p.rightIDs[:0]

	for _, id := range p.rightIDs {
		if r.rightIDs.has(id) {
			r.rightIDs.remove(id)

			kept = append(kept, id)
		} else {
			r.leftIDs.add(id)
		}
	}

	p.rightIDs = kept
}

func (idx *Index) bubbleUp(n uint32) {
	for {
		parent := idx.nd(n).parent
		if parent == nilNode || idx.nd(n).priority >= idx.nd(parent).priority {
			return
		}

		if idx.nd(parent).left == n {
			idx.rotateRight(n)
		} else {
			idx.rotateLeft(n)
		}
	}
}

func (idx *Index) bubbleDown(n uint32) {
	for {
		left, right := idx.nd(n).left, idx.nd(n).right

		leftPriority, rightPriority := int32(math.MaxInt32), int32(math.MaxInt32)
		if left != nilNode {
			leftPriority = idx.nd(left).priority
		}

		if right != nilNode {
			rightPriority = idx.nd(right).priority
		}

		switch {
		case leftPriority < rightPriority && leftPriority < idx.nd(n).priority:
			idx.rotateRight(left)
		case rightPriority < idx.nd(n).priority:
			idx.rotateLeft(right)
		default:
			return
		}
	}
}

// deleteNode sinks n to a leaf and unlinks it. n must not be the endpoint of
// any marker.
func (idx *Index) deleteNode(n uint32) {
	idx.nd(n).priority = math.MaxInt32
	idx.bubbleDown(n)

	idx.replaceChild(idx.nd(n).parent, n, nilNode)
	idx.freeNode(n)
}
