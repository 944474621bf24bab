package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The seed suite from §8: a 2048-byte buffer, 8-byte minimum alignment.

func newSeedArena(t *testing.T) *Arena {
	t.Helper()
	buf := make([]byte, 2048)
	a, err := New(buf)
	require.NoError(t, err)
	return a
}

func needed(a *Arena, payload uint32) uint32 {
	return alignUp(payload+regionHeaderSize, a.cfg.MinAlign)
}

// S2: three allocations (64, 120, 40) produce three allocated regions in
// physical order followed by one free tail, whose size equals the initial
// free region's size minus the three aligned allocations.
func TestScenarioThreeAllocs(t *testing.T) {
	a := newSeedArena(t)

	var initialFree uint32
	a.WalkPhysical(func(r Region) bool {
		initialFree = r.Size
		return true
	})

	p1 := a.Alloc(64)
	p2 := a.Alloc(120)
	p3 := a.Alloc(40)
	require.NotNil(t, p1)
	require.NotNil(t, p2)
	require.NotNil(t, p3)

	var regions []Region
	a.WalkPhysical(func(r Region) bool {
		regions = append(regions, r)
		return true
	})

	require.Len(t, regions, 4)
	require.False(t, regions[0].Free)
	require.False(t, regions[1].Free)
	require.False(t, regions[2].Free)
	require.True(t, regions[3].Free)

	used := needed(a, 64) + needed(a, 120) + needed(a, 40)
	require.EqualValues(t, initialFree-used, regions[3].Size)
	require.NoError(t, a.Validate())
}

// S3: freeing the middle region of three leaves INV-ADJ intact (both
// neighbors remain allocated), the free index gains exactly the middle
// region alongside the existing tail, and no coalescing happens.
func TestScenarioFreeMiddleOfThree(t *testing.T) {
	a := newSeedArena(t)

	p1 := a.Alloc(64)
	p2 := a.Alloc(120)
	p3 := a.Alloc(40)
	require.NotNil(t, p1)
	require.NotNil(t, p3)

	a.Free(p2)

	var regions []Region
	a.WalkPhysical(func(r Region) bool {
		regions = append(regions, r)
		return true
	})
	require.Len(t, regions, 4)
	require.False(t, regions[0].Free)
	require.True(t, regions[1].Free)
	require.False(t, regions[2].Free)
	require.True(t, regions[3].Free)

	var freeNodes []Region
	a.WalkFree(func(r Region) bool {
		freeNodes = append(freeNodes, r)
		return true
	})
	require.Len(t, freeNodes, 2)
	require.NoError(t, a.Validate())
}

// S4: freeing all three restores a single free region covering everything
// past the first-region header, with exactly one node in the free index.
func TestScenarioFreeAllThree(t *testing.T) {
	a := newSeedArena(t)

	var initialFree uint32
	a.WalkPhysical(func(r Region) bool {
		initialFree = r.Size
		return true
	})

	p1 := a.Alloc(64)
	p2 := a.Alloc(120)
	p3 := a.Alloc(40)

	a.Free(p2)
	a.Free(p1)
	a.Free(p3)

	var regions []Region
	a.WalkPhysical(func(r Region) bool {
		regions = append(regions, r)
		return true
	})
	require.Len(t, regions, 1)
	require.True(t, regions[0].Free)
	require.EqualValues(t, initialFree, regions[0].Size)

	var freeNodes []Region
	a.WalkFree(func(r Region) bool {
		freeNodes = append(freeNodes, r)
		return true
	})
	require.Len(t, freeNodes, 1)
	require.NoError(t, a.Validate())
}

// S5: re-allocating after a full free returns the same address originally
// handed out for the first (64-byte) allocation, since coalescing restored
// the single-region state and best-fit over that one free region picks it.
func TestScenarioReallocateAfterFullFree(t *testing.T) {
	a := newSeedArena(t)

	p1 := a.Alloc(64)
	off1 := a.offsetOf(p1)
	p2 := a.Alloc(120)
	p3 := a.Alloc(40)

	a.Free(p1)
	a.Free(p2)
	a.Free(p3)

	p4 := a.Alloc(200)
	require.NotNil(t, p4)
	require.Equal(t, off1, a.offsetOf(p4))
	require.NoError(t, a.Validate())
}

// S6: realloc growing in place, when the next physical region is a
// sufficiently large free tail, returns the same pointer, grows the
// region, shrinks the tail, and never copies — a sentinel byte written
// before the realloc is still at the same address afterward.
func TestScenarioReallocGrowInPlace(t *testing.T) {
	a := newSeedArena(t)

	p := a.Alloc(64)
	require.NotNil(t, p)
	p[0] = 0xAB

	offBefore := a.offsetOf(p)

	grown := a.Realloc(p, 128)
	require.NotNil(t, grown)
	require.Equal(t, offBefore, a.offsetOf(grown))
	require.Equal(t, byte(0xAB), grown[0])
	require.Len(t, grown, 128)
	require.NoError(t, a.Validate())
}
