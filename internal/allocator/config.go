// Package allocator implements rebal, a best-fit memory allocator that
// operates entirely inside a caller-supplied []byte buffer. It never
// touches the OS heap: every region header, every red-black tree link, and
// every payload byte lives inside the buffer the caller owns.
package allocator

// Config holds the handful of tunables the allocator exposes. Like the
// rest of the allocator's public surface, Config has a private default
// and is adjusted through functional options passed to New.
type Config struct {
	// MinAlign is the minimum alignment, in bytes, guaranteed for every
	// payload pointer. Must be a power of two that evenly divides the
	// fixed region header size, so a header-aligned region offset always
	// leaves its payload aligned too; New rejects values that don't.
	MinAlign uint32

	// Magic is the 32-bit sentinel New writes into the arena header.
	// Validate compares it and reports ErrBadMagic on a mismatch. New
	// always initializes a fresh header; it does not reattach to an
	// existing buffer, and Alloc, Free and Realloc do not check the magic.
	Magic uint32
}

// Option configures an Arena at construction time.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		MinAlign: 8,
		Magic:    0xC0FEBABE,
	}
}

// WithMinAlign overrides the default 8-byte minimum alignment. a must be a
// power of two that evenly divides the region header size; New returns an
// error otherwise.
func WithMinAlign(a uint32) Option {
	return func(c *Config) { c.MinAlign = a }
}

// WithMagic overrides the default arena magic constant. Useful for
// namespacing buffers so two incompatible allocator configurations never
// mistake each other's memory for their own.
func WithMagic(magic uint32) Option {
	return func(c *Config) { c.Magic = magic }
}
