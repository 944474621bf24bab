package allocator

import "encoding/binary"

// On-disk layout (§6 of the design). All multi-byte fields are
// little-endian and every offset is measured from byte 0 of the buffer.
// Fields are packed at 4-byte-aligned positions; nothing here is overlaid
// with unsafe.Pointer, so the layout is stable across Go versions and
// architectures — exactly the bit-stability the format requires.

// arenaHeaderSize is the fixed size of the control header at the start of
// the buffer: magic(4) + capacity(4) + freeRoot(4) + firstBlock(4).
const arenaHeaderSize = 16

const (
	offArenaMagic      = 0
	offArenaCapacity   = 4
	offArenaFreeRoot   = 8
	offArenaFirstBlock = 12
)

// regionHeaderSize is the fixed size of every region header:
// size(4) + flags(1) + reserved(3) + left(4) + right(4) + parent(4) +
// prevPhys(4) + nextPhys(4) + reserved(4). Padded to 32 so that the
// header size itself is a multiple of any minimum alignment rebal
// supports (powers of two up to 32; New rejects larger ones), satisfying §4.1's requirement that the
// header size be a multiple of MinAlign so payloads start aligned.
const regionHeaderSize = 32

const (
	offRegionSize     = 0
	offRegionFlags    = 4
	offRegionLeft     = 8
	offRegionRight    = 12
	offRegionParent   = 16
	offRegionPrevPhys = 20
	offRegionNextPhys = 24
)

const (
	flagFree  byte = 1 << 0
	flagColor byte = 1 << 1 // set => red
)

type rbColor byte

const (
	colorBlack rbColor = 0
	colorRed   rbColor = 1
)

// arena header accessors. off is always 0 (the header lives at the start
// of the buffer); the methods take no offset argument to keep call sites
// unambiguous.

func (a *Arena) arenaMagic() uint32 {
	return binary.LittleEndian.Uint32(a.buf[offArenaMagic:])
}

func (a *Arena) setArenaMagic(v uint32) {
	binary.LittleEndian.PutUint32(a.buf[offArenaMagic:], v)
}

func (a *Arena) arenaCapacity() uint32 {
	return binary.LittleEndian.Uint32(a.buf[offArenaCapacity:])
}

func (a *Arena) setArenaCapacity(v uint32) {
	binary.LittleEndian.PutUint32(a.buf[offArenaCapacity:], v)
}

func (a *Arena) freeRoot() offset {
	return offset(binary.LittleEndian.Uint32(a.buf[offArenaFreeRoot:]))
}

func (a *Arena) setFreeRoot(off offset) {
	binary.LittleEndian.PutUint32(a.buf[offArenaFreeRoot:], uint32(off))
}

func (a *Arena) firstBlock() offset {
	return offset(binary.LittleEndian.Uint32(a.buf[offArenaFirstBlock:]))
}

func (a *Arena) setFirstBlock(off offset) {
	binary.LittleEndian.PutUint32(a.buf[offArenaFirstBlock:], uint32(off))
}

// regionView is a cheap handle onto a region header living inside the
// arena's buffer at a fixed offset — the adapted descendant of the
// reference implementation's hdr(a, off)/off_of(a, b) pointer-cast pair,
// translated from C's "reinterpret the bytes as a struct" idiom into Go's
// "read and write fixed fields through encoding/binary" idiom.
type regionView struct {
	a   *Arena
	off offset
}

func (a *Arena) region(off offset) regionView {
	return regionView{a: a, off: off}
}

func (r regionView) valid() bool { return r.off != nullOffset }

func (r regionView) bytes() []byte {
	return r.a.buf[r.off : r.off+regionHeaderSize]
}

func (r regionView) size() uint32 {
	return binary.LittleEndian.Uint32(r.bytes()[offRegionSize:])
}

func (r regionView) setSize(v uint32) {
	binary.LittleEndian.PutUint32(r.bytes()[offRegionSize:], v)
}

func (r regionView) free() bool {
	return r.bytes()[offRegionFlags]&flagFree != 0
}

func (r regionView) setFree(v bool) {
	b := r.bytes()
	if v {
		b[offRegionFlags] |= flagFree
	} else {
		b[offRegionFlags] &^= flagFree
	}
}

func (r regionView) color() rbColor {
	if r.bytes()[offRegionFlags]&flagColor != 0 {
		return colorRed
	}
	return colorBlack
}

func (r regionView) setColor(c rbColor) {
	b := r.bytes()
	if c == colorRed {
		b[offRegionFlags] |= flagColor
	} else {
		b[offRegionFlags] &^= flagColor
	}
}

func (r regionView) left() offset   { return offset(binary.LittleEndian.Uint32(r.bytes()[offRegionLeft:])) }
func (r regionView) right() offset  { return offset(binary.LittleEndian.Uint32(r.bytes()[offRegionRight:])) }
func (r regionView) parent() offset { return offset(binary.LittleEndian.Uint32(r.bytes()[offRegionParent:])) }
func (r regionView) prevPhys() offset {
	return offset(binary.LittleEndian.Uint32(r.bytes()[offRegionPrevPhys:]))
}
func (r regionView) nextPhys() offset {
	return offset(binary.LittleEndian.Uint32(r.bytes()[offRegionNextPhys:]))
}

func (r regionView) setLeft(v offset)   { binary.LittleEndian.PutUint32(r.bytes()[offRegionLeft:], uint32(v)) }
func (r regionView) setRight(v offset)  { binary.LittleEndian.PutUint32(r.bytes()[offRegionRight:], uint32(v)) }
func (r regionView) setParent(v offset) { binary.LittleEndian.PutUint32(r.bytes()[offRegionParent:], uint32(v)) }
func (r regionView) setPrevPhys(v offset) {
	binary.LittleEndian.PutUint32(r.bytes()[offRegionPrevPhys:], uint32(v))
}
func (r regionView) setNextPhys(v offset) {
	binary.LittleEndian.PutUint32(r.bytes()[offRegionNextPhys:], uint32(v))
}

// payload returns the writable payload slice belonging to this region,
// bounds-checked to exactly region size minus header size — the Go
// equivalent of "pointer to payload" that also gives the caller bounds
// safety the original void* never had.
func (r regionView) payload() []byte {
	start := r.off + regionHeaderSize
	end := r.off + offset(r.size())
	return r.a.buf[start:end:end]
}

// zero clears every header field. Used before a freshly created header
// (the initial region, a split or trimmed tail) is populated; allocated
// and merged regions are not zeroed. Mirrors the reference's zero_bytes(hdr, sizeof(...)) calls.
func (r regionView) zero() {
	b := r.bytes()
	for i := range b {
		b[i] = 0
	}
}
