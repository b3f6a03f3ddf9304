package patch

import "math/bits"

// rotate lifts x above its parent. Distances are relative to the nearest left
// ancestor, so only the node that gains or loses a left ancestor changes.
func (p *Patch) rotate(x uint32) {
	parent := p.nd(x).parent
	doAssert(parent != nilNode)

	grand := p.nd(parent).parent
	xn, pn := p.nd(x), p.nd(parent)

	if pn.left == x {
		// x becomes the left ancestor of parent.
		pn.left = xn.right
		if xn.right != nilNode {
			p.nd(xn.right).parent = parent
		}

		xn.right = parent

		for s := range pn.distance {
			pn.distance[s] = pn.distance[s].Traversal(xn.distance[s].Traverse(xn.extent[s]))
		}
	} else {
		// parent stops being the left ancestor of x.
		pn.right = xn.left
		if xn.left != nilNode {
			p.nd(xn.left).parent = parent
		}

		xn.left = parent

		for s := range xn.distance {
			xn.distance[s] = pn.distance[s].Traverse(pn.extent[s]).Traverse(xn.distance[s])
		}
	}

	pn.parent = x
	xn.parent = grand

	switch {
	case grand == nilNode:
		p.root = x
	case p.nd(grand).left == parent:
		p.nd(grand).left = x
	default:
		p.nd(grand).right = x
	}

	p.updateSubtreeTextSize(parent)
	p.updateSubtreeTextSize(x)
}

// splay rotates x upwards until its parent is top. A top of nilNode makes x the root.
func (p *Patch) splay(x, top uint32) {
	for {
		parent := p.nd(x).parent
		if parent == top {
			return
		}

		grand := p.nd(parent).parent
		if grand == top {
			p.rotate(x)

			return
		}

		if (p.nd(grand).left == parent) == (p.nd(parent).left == x) {
			p.rotate(parent)
			p.rotate(x)
		} else {
			p.rotate(x)
			p.rotate(x)
		}
	}
}

// Rebalance restructures the tree into a complete-as-possible shape using the
// Day-Stout-Warren vine compression. Long runs of edits that always land at
// one end of the document degrade a splay tree into a list; a periodic
// Rebalance bounds the depth again.
func (p *Patch) Rebalance() {
	if p.root == nilNode {
		return
	}

	// Flatten into a right-leaning vine.
	for cur := p.root; cur != nilNode; {
		if left := p.nd(cur).left; left != nilNode {
			p.rotate(left)
			cur = left
		} else {
			cur = p.nd(cur).right
		}
	}

	n := p.changeCount
	m := 1<<(bits.Len(uint(n+1))-1) - 1

	p.compressVine(n - m)

	for m > 1 {
		m /= 2
		p.compressVine(m)
	}
}

func (p *Patch) compressVine(count int) {
	cur := p.root

	for range count {
		if cur == nilNode {
			return
		}

		right := p.nd(cur).right
		if right == nilNode {
			return
		}

		p.rotate(right)
		cur = p.nd(right).right
	}
}

// Depth returns the height of the tree, which Rebalance brings down to
// the ceiling of log2(ChangeCount+1).
func (p *Patch) Depth() int {
	var walk func(idx uint32) int

	walk = func(idx uint32) int {
		if idx == nilNode {
			return 0
		}

		return 1 + max(walk(p.nd(idx).left), walk(p.nd(idx).right))
	}

	return walk(p.root)
}
