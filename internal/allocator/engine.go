package allocator

// split shrinks free region b down to exactly needed bytes (header +
// payload, already aligned) and splices the remainder back into the
// physical list and free index as a new free region, provided the
// remainder would itself be large enough to ever hold an allocation.
// Returns b, now sized to exactly needed. If there isn't enough room for a
// useful remainder, b is returned unmodified and the whole region becomes
// the allocation — splitting only when the tail would be at least
// header + MinAlign is a correctness requirement (§4.4/§9), not an
// optimization: a smaller tail could never satisfy any future alloc.
func (a *Arena) split(b regionView, needed uint32) regionView {
	minAlign := a.cfg.MinAlign
	if b.size() < needed+regionHeaderSize+minAlign {
		return b
	}

	remaining := b.size() - needed
	b.setSize(needed)

	tail := a.region(b.off + offset(needed))
	tail.zero()
	tail.setSize(remaining)
	tail.setFree(true)

	a.insertAfter(b, tail)
	a.rbInsert(tail)

	return b
}

// coalesce merges a newly-freed region b (its free flag already set, not
// yet indexed) with any free physical neighbors. Any neighbor merged in is
// first removed from the free index — coalesce never leaves a stale
// free-index entry for a region that's about to change size or vanish.
// Next is merged before prev; either order is valid, what matters is that
// the region this returns has no free physical neighbor left. The caller
// is responsible for inserting the surviving region into the free index
// exactly once.
func (a *Arena) coalesce(b regionView) regionView {
	if next := b.nextPhys(); next != nullOffset {
		n := a.region(next)
		if n.free() {
			a.rbDelete(n)
			b.setSize(b.size() + n.size())
			a.unlinkPhysical(n)
		}
	}

	if prev := b.prevPhys(); prev != nullOffset {
		p := a.region(prev)
		if p.free() {
			a.rbDelete(p)
			p.setSize(p.size() + b.size())
			a.unlinkPhysical(b)
			b = p
		}
	}

	return b
}
