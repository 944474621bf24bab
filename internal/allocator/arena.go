package allocator

import (
	"fmt"
	"unsafe"
)

// Arena is a best-fit allocator over a caller-owned []byte. Every byte of
// bookkeeping — the arena header, every region header, the physical list,
// and the free-region red-black tree — lives inside that buffer. Arena
// itself holds nothing but a reference to it plus its configuration; it
// never allocates from the Go heap on behalf of the caller.
//
// Arena is not safe for concurrent use. Every public method must be
// externally synchronized by the caller if more than one goroutine can
// reach the same Arena (§5 of the design: no internal synchronization, no
// atomics, no re-entrant callbacks).
type Arena struct {
	buf      []byte
	cfg      Config
	initCode InitCode
}

// New creates an Arena over buf. buf's entire capacity becomes the
// arena's working set: one giant free region is carved out covering
// everything past the arena header, sized and aligned per the applied
// options.
func New(buf []byte, opts ...Option) (*Arena, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if !isPowerOfTwo(cfg.MinAlign) {
		return nil, fmt.Errorf("allocator: New: %w", ErrBadAlignment)
	}
	if regionHeaderSize%cfg.MinAlign != 0 {
		return nil, fmt.Errorf("allocator: New: MinAlign %d does not divide region header size %d: %w",
			cfg.MinAlign, regionHeaderSize, ErrBadAlignment)
	}

	if buf == nil {
		return nil, fmt.Errorf("allocator: New: %w", ErrNilBuffer)
	}

	a := &Arena{buf: buf, cfg: *cfg}

	if uint32(len(buf)) < arenaHeaderSize+regionHeaderSize {
		a.initCode = CodeTooSmall
		return nil, fmt.Errorf("allocator: New: %w", ErrBufferTooSmall)
	}

	firstOff := offset(alignUp(arenaHeaderSize, cfg.MinAlign))
	if uint32(len(buf)) <= uint32(firstOff)+regionHeaderSize {
		a.initCode = CodeNoPayloadRoom
		return nil, fmt.Errorf("allocator: New: %w", ErrNoPayloadRoom)
	}

	a.setArenaMagic(cfg.Magic)
	a.setArenaCapacity(uint32(len(buf)))
	a.setFreeRoot(nullOffset)
	a.setFirstBlock(firstOff)

	first := a.region(firstOff)
	first.zero()
	first.setSize(uint32(len(buf)) - uint32(firstOff))
	first.setFree(true)

	a.rbInsert(first)

	a.initCode = CodeOK
	return a, nil
}

// InitCode returns the status code recorded by New. New returns no Arena
// when it fails, so an Arena always reports CodeOK; the negative codes are
// not reported through this method.
func (a *Arena) InitCode() InitCode { return a.initCode }

// Capacity returns the total buffer size the arena was constructed over.
func (a *Arena) Capacity() uint32 { return a.arenaCapacity() }

// offsetOf returns p's byte offset inside the arena's backing buffer. p
// must be a slice previously returned by Alloc or Realloc on this Arena.
func (a *Arena) offsetOf(p []byte) offset {
	if len(p) == 0 {
		return nullOffset
	}
	base := uintptr(unsafe.Pointer(&a.buf[0]))
	ptr := uintptr(unsafe.Pointer(&p[0]))
	return offset(ptr - base)
}

// Alloc returns a payload slice of exactly size bytes, or nil if size is
// zero or no free region is large enough (out of memory). The returned
// slice's capacity equals its length, so callers cannot append() past the
// allocation into neighboring arena bookkeeping.
func (a *Arena) Alloc(size uint32) []byte {
	if a == nil || size == 0 {
		return nil
	}

	needed := alignUp(size+regionHeaderSize, a.cfg.MinAlign)
	if needed < size {
		return nil // overflow
	}

	b := a.rbFindBest(needed)
	if !b.valid() {
		return nil
	}

	a.rbDelete(b)
	b = a.split(b, needed)
	b.setFree(false)

	return b.payload()[:size:size]
}

// Free returns p's region to the free index, coalescing with any free
// physical neighbors first. Free of nil is a no-op. Freeing an
// already-free region is a no-op (the single-shot double-free guard
// described in §7 — it is not thread-safe and not a general corruption
// detector).
func (a *Arena) Free(p []byte) {
	if a == nil || len(p) == 0 {
		return
	}

	b := a.region(a.offsetOf(p) - regionHeaderSize)
	if b.free() {
		return
	}

	b.setFree(true)
	survivor := a.coalesce(b)
	a.rbInsert(survivor)
}

// Realloc resizes p's allocation to size bytes, per §4.6:
//
//   - Realloc(nil, n) behaves like Alloc(n).
//   - Realloc(p, 0) behaves like Free(p) and returns nil.
//   - Realloc of an already-free region returns nil (corrupt input).
//   - A no-op request (same rounded size) returns p unchanged.
//   - Shrinking carves a tail back to the free index when the tail would
//     itself be a valid region, coalescing it with its neighbors first so
//     it is inserted into the free index exactly once.
//   - Growing tries to absorb a free next neighbor in place before
//     falling back to allocate+copy+free.
//
// On allocation failure during the relocate path, p is left completely
// untouched and nil is returned.
func (a *Arena) Realloc(p []byte, size uint32) []byte {
	if len(p) == 0 {
		return a.Alloc(size)
	}
	if size == 0 {
		a.Free(p)
		return nil
	}
	if a == nil {
		return nil
	}

	b := a.region(a.offsetOf(p) - regionHeaderSize)
	if b.free() {
		return nil
	}

	newTotal := alignUp(size+regionHeaderSize, a.cfg.MinAlign)
	if newTotal < size {
		return nil // overflow
	}

	if newTotal == b.size() {
		return b.payload()[:size:size]
	}

	if newTotal < b.size() {
		return a.reallocShrink(b, newTotal, size)
	}

	if grown := a.reallocGrowInPlace(b, newTotal, size); grown != nil {
		return grown
	}

	newP := a.Alloc(size)
	if newP == nil {
		return nil
	}
	copy(newP, p)
	a.Free(p)

	return newP
}

// reallocShrink carves off the tail of b that newTotal no longer needs,
// provided the tail qualifies as a valid region on its own. The tail is
// coalesced with its physical neighbors before being inserted into the
// free index exactly once (§9's Open Question, resolved as: coalesce
// first, insert once).
func (a *Arena) reallocShrink(b regionView, newTotal, size uint32) []byte {
	remaining := b.size() - newTotal
	if remaining >= regionHeaderSize+a.cfg.MinAlign {
		b.setSize(newTotal)

		tail := a.region(b.off + offset(newTotal))
		tail.zero()
		tail.setSize(remaining)
		tail.setFree(true)

		a.insertAfter(b, tail)
		survivor := a.coalesce(tail)
		a.rbInsert(survivor)
	}

	return b.payload()[:size:size]
}

// reallocGrowInPlace tries to satisfy a grow request by absorbing all or
// part of a free next physical neighbor. Returns nil if the next
// neighbor isn't free or isn't large enough, leaving b untouched so the
// caller can fall back to allocate+copy+free.
func (a *Arena) reallocGrowInPlace(b regionView, newTotal, size uint32) []byte {
	next := b.nextPhys()
	if next == nullOffset {
		return nil
	}

	n := a.region(next)
	deficit := newTotal - b.size()
	if !n.free() || n.size() < deficit {
		return nil
	}

	a.rbDelete(n)

	remaining := n.size() - deficit
	if remaining >= regionHeaderSize+a.cfg.MinAlign {
		// Read n's link before zeroing: when deficit is smaller than a
		// header, newNext's header overlaps n's.
		nNext := n.nextPhys()
		newNext := a.region(n.off + offset(deficit))
		newNext.zero()
		newNext.setSize(remaining)
		newNext.setFree(true)
		newNext.setPrevPhys(b.off)
		newNext.setNextPhys(nNext)
		if nNext != nullOffset {
			a.region(nNext).setPrevPhys(newNext.off)
		}

		b.setSize(b.size() + deficit)
		b.setNextPhys(newNext.off)

		a.rbInsert(newNext)
	} else {
		b.setSize(b.size() + n.size())
		b.setNextPhys(n.nextPhys())
		if n.nextPhys() != nullOffset {
			a.region(n.nextPhys()).setPrevPhys(b.off)
		}
	}

	return b.payload()[:size:size]
}
