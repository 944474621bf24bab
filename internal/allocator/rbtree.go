package allocator

import "fmt"

// The free index is a red-black tree over free regions keyed by
// (size, offset): size is primary, offset breaks ties deterministically
// so that best-fit among same-sized candidates always picks the
// lowest-addressed one. Every operation is a direct translation of the
// reference implementation's rb_insert/rb_delete/rb_find_best, adapted
// from C's pointer-cast-over-a-struct idiom to Go's offset+regionView
// idiom (see layout.go).
//
// Null-child handling during delete-fixup: the node being rebalanced can
// be the null child of a real parent, and null has no header to read a
// parent pointer from. Rather than recovering a "last known parent" from
// a stale field the way the reference's C fallback does (xp =
// y->parent_off, which the reference itself documents as brittle when the
// null child's parent is the root), this implementation threads the
// parent offset explicitly through rbDelete and rbDeleteFixup as a second
// return/parameter alongside x.

func (a *Arena) rbRoot() regionView    { return a.region(a.freeRoot()) }
func (a *Arena) setRbRoot(r regionView) { a.setFreeRoot(r.off) }

func less(z, x regionView) bool {
	if z.size() != x.size() {
		return z.size() < x.size()
	}
	return z.off < x.off
}

func childColor(a *Arena, off offset) rbColor {
	if off == nullOffset {
		return colorBlack
	}
	return a.region(off).color()
}

func (a *Arena) rbLeftRotate(x regionView) {
	y := a.region(x.right())
	if !y.valid() {
		return
	}

	x.setRight(y.left())
	if y.left() != nullOffset {
		a.region(y.left()).setParent(x.off)
	}

	y.setParent(x.parent())
	if x.parent() == nullOffset {
		a.setRbRoot(y)
	} else {
		xp := a.region(x.parent())
		if xp.left() == x.off {
			xp.setLeft(y.off)
		} else {
			xp.setRight(y.off)
		}
	}

	y.setLeft(x.off)
	x.setParent(y.off)
}

func (a *Arena) rbRightRotate(x regionView) {
	y := a.region(x.left())
	if !y.valid() {
		return
	}

	x.setLeft(y.right())
	if y.right() != nullOffset {
		a.region(y.right()).setParent(x.off)
	}

	y.setParent(x.parent())
	if x.parent() == nullOffset {
		a.setRbRoot(y)
	} else {
		xp := a.region(x.parent())
		if xp.left() == x.off {
			xp.setLeft(y.off)
		} else {
			xp.setRight(y.off)
		}
	}

	y.setRight(x.off)
	x.setParent(y.off)
}

func (a *Arena) rbInsertFixup(z regionView) {
	for z.parent() != nullOffset && a.region(z.parent()).color() == colorRed {
		parent := a.region(z.parent())
		g := a.region(parent.parent())
		if !g.valid() {
			break
		}

		if parent.off == g.left() {
			uncle := a.region(g.right())
			if uncle.valid() && uncle.color() == colorRed {
				parent.setColor(colorBlack)
				uncle.setColor(colorBlack)
				g.setColor(colorRed)
				z = g
			} else {
				if z.off == parent.right() {
					z = parent
					a.rbLeftRotate(z)
					parent = a.region(z.parent())
					g = a.region(parent.parent())
				}
				parent.setColor(colorBlack)
				if g.valid() {
					g.setColor(colorRed)
					a.rbRightRotate(g)
				}
			}
		} else {
			uncle := a.region(g.left())
			if uncle.valid() && uncle.color() == colorRed {
				parent.setColor(colorBlack)
				uncle.setColor(colorBlack)
				g.setColor(colorRed)
				z = g
			} else {
				if z.off == parent.left() {
					z = parent
					a.rbRightRotate(z)
					parent = a.region(z.parent())
					g = a.region(parent.parent())
				}
				parent.setColor(colorBlack)
				if g.valid() {
					g.setColor(colorRed)
					a.rbLeftRotate(g)
				}
			}
		}
	}

	if root := a.rbRoot(); root.valid() {
		root.setColor(colorBlack)
	}
}

// rbInsert inserts z, a region not currently part of any tree, keyed by
// (z.size(), z.off). z's left/right/parent are reset and z is colored red
// before the standard fixup runs.
func (a *Arena) rbInsert(z regionView) {
	z.setLeft(nullOffset)
	z.setRight(nullOffset)
	z.setParent(nullOffset)
	z.setColor(colorRed)

	if a.freeRoot() == nullOffset {
		a.setFreeRoot(z.off)
		z.setColor(colorBlack)
		return
	}

	var y regionView
	x := a.rbRoot()
	for x.valid() {
		y = x
		if less(z, x) {
			x = a.region(x.left())
		} else {
			x = a.region(x.right())
		}
	}

	z.setParent(y.off)
	if less(z, y) {
		y.setLeft(z.off)
	} else {
		y.setRight(z.off)
	}

	a.rbInsertFixup(z)
}

// rbTransplant replaces the subtree rooted at u with the subtree rooted
// at v (v may be the null region, offset 0).
func (a *Arena) rbTransplant(u, v regionView) {
	if u.parent() == nullOffset {
		a.setFreeRoot(v.off)
	} else {
		up := a.region(u.parent())
		if up.left() == u.off {
			up.setLeft(v.off)
		} else {
			up.setRight(v.off)
		}
	}
	if v.valid() {
		v.setParent(u.parent())
	}
}

func (a *Arena) rbMinimum(n regionView) regionView {
	for n.valid() && n.left() != nullOffset {
		n = a.region(n.left())
	}
	return n
}

// rbDelete removes z from the free index. After it returns, z's
// left/right/parent/color fields are considered dead — callers must not
// read them again until z is reinserted.
func (a *Arena) rbDelete(z regionView) {
	y := z
	yOriginalColor := y.color()
	var x regionView
	var xParent offset

	switch {
	case z.left() == nullOffset:
		x = a.region(z.right())
		xParent = z.parent()
		a.rbTransplant(z, x)
	case z.right() == nullOffset:
		x = a.region(z.left())
		xParent = z.parent()
		a.rbTransplant(z, x)
	default:
		y = a.rbMinimum(a.region(z.right()))
		yOriginalColor = y.color()
		x = a.region(y.right())

		if y.parent() == z.off {
			xParent = y.off
			if x.valid() {
				x.setParent(y.off)
			}
		} else {
			xParent = y.parent()
			a.rbTransplant(y, x)
			y.setRight(z.right())
			a.region(y.right()).setParent(y.off)
		}

		a.rbTransplant(z, y)
		y.setLeft(z.left())
		a.region(y.left()).setParent(y.off)
		y.setColor(z.color())
	}

	if yOriginalColor == colorBlack {
		a.rbDeleteFixup(x, xParent)
	}
}

func (a *Arena) rbDeleteFixup(x regionView, xParent offset) {
	for x.off != a.freeRoot() && (!x.valid() || x.color() == colorBlack) {
		xp := a.region(xParent)
		if !xp.valid() {
			break
		}

		if xp.left() == x.off {
			w := a.region(xp.right())
			if w.valid() && w.color() == colorRed {
				w.setColor(colorBlack)
				xp.setColor(colorRed)
				a.rbLeftRotate(xp)
				w = a.region(xp.right())
			}

			if !w.valid() || (childColor(a, w.left()) == colorBlack && childColor(a, w.right()) == colorBlack) {
				if w.valid() {
					w.setColor(colorRed)
				}
				x = xp
				xParent = xp.parent()
			} else {
				if childColor(a, w.right()) == colorBlack {
					if w.left() != nullOffset {
						a.region(w.left()).setColor(colorBlack)
					}
					w.setColor(colorRed)
					a.rbRightRotate(w)
					w = a.region(xp.right())
				}
				w.setColor(xp.color())
				xp.setColor(colorBlack)
				if w.right() != nullOffset {
					a.region(w.right()).setColor(colorBlack)
				}
				a.rbLeftRotate(xp)
				x = a.rbRoot()
				xParent = nullOffset
			}
		} else {
			w := a.region(xp.left())
			if w.valid() && w.color() == colorRed {
				w.setColor(colorBlack)
				xp.setColor(colorRed)
				a.rbRightRotate(xp)
				w = a.region(xp.left())
			}

			if !w.valid() || (childColor(a, w.left()) == colorBlack && childColor(a, w.right()) == colorBlack) {
				if w.valid() {
					w.setColor(colorRed)
				}
				x = xp
				xParent = xp.parent()
			} else {
				if childColor(a, w.left()) == colorBlack {
					if w.right() != nullOffset {
						a.region(w.right()).setColor(colorBlack)
					}
					w.setColor(colorRed)
					a.rbLeftRotate(w)
					w = a.region(xp.left())
				}
				w.setColor(xp.color())
				xp.setColor(colorBlack)
				if w.left() != nullOffset {
					a.region(w.left()).setColor(colorBlack)
				}
				a.rbRightRotate(xp)
				x = a.rbRoot()
				xParent = nullOffset
			}
		}
	}

	if x.valid() {
		x.setColor(colorBlack)
	}
}

// validateRB checks invariant 5 (INV-RB) over the current free index: the
// root is black, no red node has a red child, and every root-to-null path
// carries the same black-height. It returns the first violation found, or
// nil if the tree is empty or well-formed.
func (a *Arena) validateRB() error {
	root := a.rbRoot()
	if !root.valid() {
		return nil
	}
	if root.color() != colorBlack {
		return fmt.Errorf("allocator: Validate: free index root at %d is red: %w", root.off, ErrCorrupt)
	}

	var walk func(r regionView) (int, error)
	walk = func(r regionView) (int, error) {
		if !r.valid() {
			return 1, nil // null nodes count as black
		}
		if r.color() == colorRed {
			left := a.region(r.left())
			right := a.region(r.right())
			if (left.valid() && left.color() == colorRed) || (right.valid() && right.color() == colorRed) {
				return 0, fmt.Errorf("allocator: Validate: red node at %d has a red child: %w", r.off, ErrCorrupt)
			}
		}
		lh, err := walk(a.region(r.left()))
		if err != nil {
			return 0, err
		}
		rh, err := walk(a.region(r.right()))
		if err != nil {
			return 0, err
		}
		if lh != rh {
			return 0, fmt.Errorf("allocator: Validate: unequal black-height at node %d: %w", r.off, ErrCorrupt)
		}
		if r.color() == colorBlack {
			return lh + 1, nil
		}
		return lh, nil
	}

	_, err := walk(root)
	return err
}

// rbFindBest returns the least (size, offset) free region with
// size >= need, or the invalid regionView if none exists.
func (a *Arena) rbFindBest(need uint32) regionView {
	cur := a.rbRoot()
	var best regionView
	for cur.valid() {
		if cur.size() >= need {
			best = cur
			cur = a.region(cur.left())
		} else {
			cur = a.region(cur.right())
		}
	}
	return best
}
