package markerindex

import "github.com/Sumatoshi-tech/editcore/pkg/point"

// cursor walks the tree while tracking the absolute position of the current
// node and of its nearest left and right ancestors. A cursor is created per
// operation, so concurrent iterators never share state.
type cursor struct {
	idx      *Index
	node     uint32
	pos      point.Point
	leftAnc  point.Point
	rightAnc point.Point

	leftStack, rightStack []point.Point
}

func (idx *Index) cursor() *cursor {
	c := &cursor{idx: idx}
	c.reset()

	return c
}

func (c *cursor) reset() {
	c.node = c.idx.root
	c.leftAnc = point.Zero
	c.rightAnc = point.Infinity
	c.leftStack = c.leftStack[:0]
	c.rightStack = c.rightStack[:0]

	if c.node != nilNode {
		c.pos = c.idx.nd(c.node).leftExtent
	}
}

func (c *cursor) push() {
	c.leftStack = append(c.leftStack, c.leftAnc)
	c.rightStack = append(c.rightStack, c.rightAnc)
}

func (c *cursor) descendLeft() {
	c.push()
	c.rightAnc = c.pos
	c.node = c.idx.nd(c.node).left
	c.pos = c.leftAnc.Traverse(c.idx.nd(c.node).leftExtent)
}

func (c *cursor) descendRight() {
	c.push()
	c.leftAnc = c.pos
	c.node = c.idx.nd(c.node).right
	c.pos = c.leftAnc.Traverse(c.idx.nd(c.node).leftExtent)
}

func (c *cursor) ascend() {
	parent := c.idx.nd(c.node).parent
	if parent == nilNode {
		c.node = nilNode
		c.pos = point.Zero
		c.leftAnc = point.Zero
		c.rightAnc = point.Infinity

		return
	}

	if c.idx.nd(parent).left == c.node {
		c.pos = c.rightAnc
	} else {
		c.pos = c.leftAnc
	}

	last := len(c.leftStack) - 1
	c.leftAnc, c.rightAnc = c.leftStack[last], c.rightStack[last]
	c.leftStack, c.rightStack = c.leftStack[:last], c.rightStack[:last]
	c.node = parent
}

func (c *cursor) moveToSuccessor() {
	if c.node == nilNode {
		return
	}

	if c.idx.nd(c.node).right != nilNode {
		c.descendRight()

		for c.idx.nd(c.node).left != nilNode {
			c.descendLeft()
		}

		return
	}

	for {
		parent := c.idx.nd(c.node).parent
		if parent == nilNode || c.idx.nd(parent).right != c.node {
			break
		}

		c.ascend()
	}

	c.ascend()
}

// seek moves to the first node at or after position and reports whether
// there is one.
func (c *cursor) seek(position point.Point) bool {
	c.reset()

	if c.node == nilNode {
		return false
	}

	for {
		n := c.idx.nd(c.node)

		if position == c.pos {
			break
		}

		if position.Less(c.pos) {
			if n.left == nilNode {
				break
			}

			c.descendLeft()
		} else {
			if n.right == nilNode {
				break
			}

			c.descendRight()
		}
	}

	if c.pos.Less(position) {
		c.moveToSuccessor()
	}

	return c.node != nilNode
}

func (c *cursor) insertLeftChild(position point.Point) {
	child := c.idx.newNode(c.node, position.Traversal(c.leftAnc))
	c.idx.nd(c.node).left = child
}

func (c *cursor) insertRightChild(position point.Point) {
	child := c.idx.newNode(c.node, position.Traversal(c.pos))
	c.idx.nd(c.node).right = child
}

// markRight records id on the current node when the marker covers the
// interval from the node to its right ancestor.
func (c *cursor) markRight(id ID, start, end point.Point) {
	if c.leftAnc.Less(start) && start.LessEq(c.pos) && c.rightAnc.LessEq(end) {
		c.idx.nd(c.node).rightIDs.add(id)
	}
}

// markLeft records id on the current node when the marker covers the
// interval from the node's left ancestor to the node.
func (c *cursor) markLeft(id ID, start, end point.Point) {
	if !c.pos.IsZero() && start.LessEq(c.leftAnc) && c.pos.LessEq(end) {
		c.idx.nd(c.node).leftIDs.add(id)
	}
}

// insertMarkerStart walks to start, creating its node if needed, and marks
// id on the nodes passed on the way.
func (c *cursor) insertMarkerStart(id ID, start, end point.Point) uint32 {
	c.reset()

	if c.node == nilNode {
		c.idx.root = c.idx.newNode(nilNode, start)

		return c.idx.root
	}

	for {
		n := c.idx.nd(c.node)

		switch start.Compare(c.pos) {
		case 0:
			c.markRight(id, start, end)

			return c.node
		case -1:
			c.markRight(id, start, end)

			if n.left == nilNode {
				c.insertLeftChild(start)
				c.descendLeft()
				c.markRight(id, start, end)

				return c.node
			}

			c.descendLeft()
		default:
			if n.right == nilNode {
				c.insertRightChild(start)
				c.descendRight()
				c.markRight(id, start, end)

				return c.node
			}

			c.descendRight()
		}
	}
}

// insertMarkerEnd is the counterpart of insertMarkerStart for end.
func (c *cursor) insertMarkerEnd(id ID, start, end point.Point) uint32 {
	c.reset()

	for {
		n := c.idx.nd(c.node)

		switch end.Compare(c.pos) {
		case 0:
			c.markLeft(id, start, end)

			return c.node
		case -1:
			if n.left == nilNode {
				c.insertLeftChild(end)
				c.descendLeft()
				c.markLeft(id, start, end)

				return c.node
			}

			c.descendLeft()
		default:
			c.markLeft(id, start, end)

			if n.right == nilNode {
				c.insertRightChild(end)
				c.descendRight()
				c.markLeft(id, start, end)

				return c.node
			}

			c.descendRight()
		}
	}
}

// insertBoundary walks to position and returns its node, creating an
// unmarked one if needed.
func (c *cursor) insertBoundary(position point.Point) uint32 {
	c.reset()

	for {
		n := c.idx.nd(c.node)

		switch position.Compare(c.pos) {
		case 0:
			return c.node
		case -1:
			if n.left == nilNode {
				c.insertLeftChild(position)
				c.descendLeft()

				return c.node
			}

			c.descendLeft()
		default:
			if n.right == nilNode {
				c.insertRightChild(position)
				c.descendRight()

				return c.node
			}

			c.descendRight()
		}
	}
}

// checkIntersection adds the ids recorded on the current node whose
// intervals intersect [start, end].
func (c *cursor) checkIntersection(start, end point.Point, result collector) {
	n := c.idx.nd(c.node)

	if c.leftAnc.LessEq(end) && start.LessEq(c.pos) {
		result.addAll(n.leftIDs)
	}

	if start.LessEq(c.pos) && c.pos.LessEq(end) {
		result.addAll(n.startIDs)
		result.addAll(n.endIDs)
	}

	if c.pos.LessEq(end) && start.LessEq(c.rightAnc) {
		result.addAll(n.rightIDs)
	}
}
