package allocator

// offset is a byte position relative to the start of the arena's backing
// buffer. 0 is reserved to mean "null" — the arena header occupies byte 0,
// so no real region may ever be placed there.
type offset uint32

const nullOffset offset = 0

// alignUp rounds x up to the next multiple of a, a power of two.
func alignUp(x, a uint32) uint32 {
	m := a - 1
	return (x + m) &^ m
}

// isPowerOfTwo reports whether a is a nonzero power of two.
func isPowerOfTwo(a uint32) bool {
	return a != 0 && a&(a-1) == 0
}
