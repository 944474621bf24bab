package allocator

import "fmt"

// Offset is an exported, caller-facing view of a region's position inside
// the arena's buffer, used only by the read-only introspection API. 0
// denotes "no region" (the null/sentinel value), matching the persisted
// layout's convention (§6).
type Offset uint32

// Region is a read-only snapshot of one region header, as produced by
// WalkPhysical and WalkFree. It carries both the physical-list fields
// and the free-index fields; Color is only meaningful when Free is true
// (an allocated region's tree-link fields are dead, per §9).
type Region struct {
	Offset Offset
	Size   uint32
	Free   bool
	Prev   Offset // physical list: 0 if first
	Next   Offset // physical list: 0 if last
	Color  rbColor
}

func (r regionView) snapshot() Region {
	return Region{
		Offset: Offset(r.off),
		Size:   r.size(),
		Free:   r.free(),
		Prev:   Offset(r.prevPhys()),
		Next:   Offset(r.nextPhys()),
		Color:  r.color(),
	}
}

// WalkPhysical walks every region — free or allocated — in address order,
// calling fn once per region. Walking stops early if fn returns false.
// Safe to call at any point between public calls; it never mutates the
// arena.
func (a *Arena) WalkPhysical(fn func(Region) bool) {
	if a == nil {
		return
	}
	for r := a.region(a.firstBlock()); r.valid(); r = a.region(r.nextPhys()) {
		if !fn(r.snapshot()) {
			return
		}
	}
}

// WalkFree performs an in-order traversal of the free-region index,
// visiting regions in strictly ascending (size, offset) order (INV-ORDER).
// Walking stops early if fn returns false.
func (a *Arena) WalkFree(fn func(Region) bool) {
	if a == nil {
		return
	}
	var inorder func(r regionView) bool
	inorder = func(r regionView) bool {
		if !r.valid() {
			return true
		}
		if !inorder(a.region(r.left())) {
			return false
		}
		if !fn(r.snapshot()) {
			return false
		}
		return inorder(a.region(r.right()))
	}
	inorder(a.rbRoot())
}

// ArenaStats aggregates counts derived from a single pass over the
// physical list, in the shape of the teacher's AllocatorStats.
type ArenaStats struct {
	TotalRegions   int
	FreeRegions    int
	AllocRegions   int
	BytesFree      uint64
	BytesAllocated uint64
	BytesOverhead  uint64
}

// Stats walks the physical list once and summarizes it. It is provided as
// a convenience so embedders don't need to reimplement WalkPhysical for
// the common case of "how full is this arena."
func (a *Arena) Stats() ArenaStats {
	var s ArenaStats
	a.WalkPhysical(func(r Region) bool {
		s.TotalRegions++
		s.BytesOverhead += regionHeaderSize
		if r.Free {
			s.FreeRegions++
			s.BytesFree += uint64(r.Size) - regionHeaderSize
		} else {
			s.AllocRegions++
			s.BytesAllocated += uint64(r.Size) - regionHeaderSize
		}
		return true
	})
	return s
}

// Validate checks the persisted-layout contract and the structural
// invariants of §3: the magic matches, capacity matches len(buf), the
// physical list exhaustively covers the buffer with no gaps or overlaps
// (INV-COVER), no two adjacent regions are both free (INV-ADJ), every
// region size is a MinAlign multiple of at least header+MinAlign
// (invariant 3), the free index has a black root with no red-red
// violations and equal black-height on every path (INV-RB), and the free
// index is exactly the set of free regions (INV-INDEX) ordered correctly
// (INV-ORDER). It never mutates the arena; on failure it returns a
// descriptive, wrapped error rather than attempting any repair.
func (a *Arena) Validate() error {
	if a == nil {
		return fmt.Errorf("allocator: Validate: %w", ErrNilBuffer)
	}
	if a.arenaMagic() != a.cfg.Magic {
		return fmt.Errorf("allocator: Validate: %w", ErrBadMagic)
	}
	if a.arenaCapacity() != uint32(len(a.buf)) {
		return fmt.Errorf("allocator: Validate: capacity %d != buffer length %d: %w",
			a.arenaCapacity(), len(a.buf), ErrCorrupt)
	}

	var (
		covered   uint64
		prevFree  bool
		freeCount int
		physErr   error
		nextOff   = Offset(a.firstBlock())
	)

	a.WalkPhysical(func(r Region) bool {
		if r.Offset != nextOff {
			physErr = fmt.Errorf("allocator: Validate: region at %d, want %d (gap or overlap): %w", r.Offset, nextOff, ErrCorrupt)
			return false
		}
		if r.Size < regionHeaderSize+a.cfg.MinAlign || r.Size%a.cfg.MinAlign != 0 {
			physErr = fmt.Errorf("allocator: Validate: region at %d has invalid size %d: %w", r.Offset, r.Size, ErrCorrupt)
			return false
		}
		if r.Free && prevFree {
			physErr = fmt.Errorf("allocator: Validate: region at %d is free and adjacent to a free predecessor: %w", r.Offset, ErrCorrupt)
			return false
		}
		covered += uint64(r.Size)
		nextOff = r.Offset + Offset(r.Size)
		prevFree = r.Free
		if r.Free {
			freeCount++
		}
		return true
	})
	if physErr != nil {
		return physErr
	}

	want := uint64(a.arenaCapacity()) - uint64(a.firstBlock())
	if covered != want {
		return fmt.Errorf("allocator: Validate: physical list covers %d bytes, want %d: %w",
			covered, want, ErrCorrupt)
	}

	if err := a.validateRB(); err != nil {
		return err
	}

	var (
		lastSize   uint32
		lastOff    Offset
		first      = true
		indexCount int
		indexErr   error
	)
	a.WalkFree(func(r Region) bool {
		indexCount++
		if !r.Free {
			indexErr = fmt.Errorf("allocator: Validate: free index holds allocated region at %d: %w", r.Offset, ErrCorrupt)
			return false
		}
		if !first && (r.Size < lastSize || (r.Size == lastSize && r.Offset <= lastOff)) {
			indexErr = fmt.Errorf("allocator: Validate: free index not strictly ordered by (size, offset) at %d: %w", r.Offset, ErrCorrupt)
			return false
		}
		first = false
		lastSize, lastOff = r.Size, r.Offset
		return true
	})
	if indexErr != nil {
		return indexErr
	}
	if indexCount != freeCount {
		return fmt.Errorf("allocator: Validate: free index has %d entries, physical list has %d free regions: %w",
			indexCount, freeCount, ErrCorrupt)
	}

	return nil
}
