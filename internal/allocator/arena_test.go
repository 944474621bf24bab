package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsNilBuffer(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNilBuffer)
}

func TestNewRejectsTooSmallBuffer(t *testing.T) {
	buf := make([]byte, arenaHeaderSize)
	a, err := New(buf)
	require.ErrorIs(t, err, ErrBufferTooSmall)
	require.Nil(t, a)
}

func TestNewRejectsNoPayloadRoom(t *testing.T) {
	// Enough for the arena header and one region header at the aligned
	// first-region offset, but no byte left over for a payload.
	buf := make([]byte, arenaHeaderSize+regionHeaderSize)
	_, err := New(buf)
	require.ErrorIs(t, err, ErrNoPayloadRoom)
}

func TestNewRejectsBadAlignment(t *testing.T) {
	buf := make([]byte, 2048)
	_, err := New(buf, WithMinAlign(3))
	require.ErrorIs(t, err, ErrBadAlignment)
}

// MinAlign must evenly divide the fixed region header size, or a
// header-aligned region offset would not leave its payload aligned.
func TestNewRejectsMinAlignLargerThanRegionHeader(t *testing.T) {
	buf := make([]byte, 2048)
	a, err := New(buf, WithMinAlign(64))
	require.ErrorIs(t, err, ErrBadAlignment)
	require.Nil(t, a)
}

// S1: fresh init produces exactly one free region covering all bytes past
// the arena/first-header area, and a free index of exactly one black node.
func TestFreshInitIsOneFreeRegion(t *testing.T) {
	buf := make([]byte, 2048)
	a, err := New(buf)
	require.NoError(t, err)
	require.NoError(t, a.Validate())

	var regions []Region
	a.WalkPhysical(func(r Region) bool {
		regions = append(regions, r)
		return true
	})
	require.Len(t, regions, 1)
	require.True(t, regions[0].Free)
	require.EqualValues(t, uint32(len(buf))-uint32(a.firstBlock()), regions[0].Size)

	var freeNodes []Region
	a.WalkFree(func(r Region) bool {
		freeNodes = append(freeNodes, r)
		return true
	})
	require.Len(t, freeNodes, 1)
	require.Equal(t, colorBlack, freeNodes[0].Color)
}

func TestAllocZeroReturnsNil(t *testing.T) {
	buf := make([]byte, 2048)
	a, err := New(buf)
	require.NoError(t, err)
	require.Nil(t, a.Alloc(0))
}

func TestAllocReturnsAlignedPointers(t *testing.T) {
	buf := make([]byte, 4096)
	a, err := New(buf)
	require.NoError(t, err)

	for _, n := range []uint32{1, 2, 3, 7, 8, 9, 63, 64, 100, 255} {
		p := a.Alloc(n)
		require.NotNil(t, p)
		require.Len(t, p, int(n))
		off := a.offsetOf(p)
		require.Zero(t, uint32(off)%a.cfg.MinAlign, "payload at %d not aligned to %d", off, a.cfg.MinAlign)
	}
	require.NoError(t, a.Validate())
}

func TestAllocOutOfMemoryReturnsNil(t *testing.T) {
	buf := make([]byte, 256)
	a, err := New(buf)
	require.NoError(t, err)

	require.Nil(t, a.Alloc(1<<20))
	require.NoError(t, a.Validate())
}

func TestFreeOfNilIsNoop(t *testing.T) {
	buf := make([]byte, 2048)
	a, err := New(buf)
	require.NoError(t, err)
	a.Free(nil) // must not panic
	require.NoError(t, a.Validate())
}

func TestDoubleFreeIsNoop(t *testing.T) {
	buf := make([]byte, 2048)
	a, err := New(buf)
	require.NoError(t, err)

	p := a.Alloc(32)
	require.NotNil(t, p)

	a.Free(p)
	require.NoError(t, a.Validate())
	before := a.Stats()

	a.Free(p) // double free: must be a silent no-op
	after := a.Stats()
	require.Equal(t, before, after)
	require.NoError(t, a.Validate())
}

// LAW-FREE-ALLOC: free(alloc(n)) leaves the allocator structurally
// identical to its pre-alloc state.
func TestFreeAllocRoundTripRestoresState(t *testing.T) {
	buf := make([]byte, 2048)
	a, err := New(buf)
	require.NoError(t, err)

	before := snapshotAll(a)

	p := a.Alloc(100)
	require.NotNil(t, p)
	a.Free(p)

	after := snapshotAll(a)
	require.Equal(t, before, after)
}

func snapshotAll(a *Arena) []Region {
	var out []Region
	a.WalkPhysical(func(r Region) bool {
		out = append(out, r)
		return true
	})
	return out
}
