// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package galloc

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := New(NewMemHeap())
	require.NoError(t, err)
	return a
}

// walkBlocks returns every regular block's payload address, in heap
// order, skipping the prologue and stopping before the epilogue.
func (a *Allocator) walkBlocks() []int64 {
	b := a.heap.Bytes()
	var bps []int64
	for bp := nextBlkp(b, a.prologueBp); blockSize(getWord(b, hdrp(bp))) != 0; bp = nextBlkp(b, bp) {
		bps = append(bps, bp)
	}
	return bps
}

// walkFreeList returns every block reachable from the free list head,
// in list order.
func (a *Allocator) walkFreeList() []int64 {
	b := a.heap.Bytes()
	var bps []int64
	for bp := a.freeHead; !blockAllocated(getWord(b, hdrp(bp))); bp = getAddr(b, succOff(bp)) {
		bps = append(bps, bp)
	}
	return bps
}

func (a *Allocator) isFree(bp int64) bool {
	return !blockAllocated(getWord(a.heap.Bytes(), hdrp(bp)))
}

// requireSound asserts P3-P6 all at once: tag consistency, no two
// adjacent free blocks, the free list equals the set of free blocks in
// heap order, and every link is reciprocal.
func requireSound(t *testing.T, a *Allocator) {
	t.Helper()

	var diag bytes.Buffer
	require.Zero(t, a.Check(false, &diag), "Check found problems:\n%s", diag.String())

	blocks := a.walkBlocks()
	var wantFree []int64
	prevFree := false
	for _, bp := range blocks {
		free := a.isFree(bp)
		require.False(t, free && prevFree, "two adjacent free blocks at %#x", bp)
		if free {
			wantFree = append(wantFree, bp)
		}
		prevFree = free
	}

	gotFree := a.walkFreeList()
	gotSet := map[int64]bool{}
	for _, bp := range gotFree {
		gotSet[bp] = true
	}
	wantSet := map[int64]bool{}
	for _, bp := range wantFree {
		wantSet[bp] = true
	}
	require.Equal(t, wantSet, gotSet, "free list does not match the set of free blocks")

	b := a.heap.Bytes()
	head := a.freeHead
	require.Equal(t, None, getAddr(b, predOff(head)), "free list head's predecessor must be None")
	for _, bp := range gotFree {
		succ := getAddr(b, succOff(bp))
		require.Equal(t, bp, getAddr(b, predOff(succ)), "successor of %#x does not point back", bp)
	}
}

func requireAligned(t *testing.T, ptr int64) {
	t.Helper()
	require.Zero(t, ptr%dwordSize, "pointer %#x is not double-word aligned", ptr)
}

// S1: init; allocate(1) -> p1; allocate(1) -> p2 != p1; free(p1);
// allocate(1) -> p3 == p1 (LIFO reuse via first-fit on a freshly
// coalesced block).
func TestScenarioS1_LIFOReuse(t *testing.T) {
	a := newTestAllocator(t)

	p1, err := a.Allocate(1)
	require.NoError(t, err)
	requireAligned(t, p1)

	p2, err := a.Allocate(1)
	require.NoError(t, err)
	requireAligned(t, p2)
	require.NotEqual(t, p1, p2)

	a.Free(p1)

	p3, err := a.Allocate(1)
	require.NoError(t, err)
	require.Equal(t, p1, p3)

	requireSound(t, a)
}

// S2: init; a,b,c = allocate(100) x3; free(b); free(a); after free(a)
// the coalescer has merged a with b into one free block - no two
// adjacent free blocks survive.
func TestScenarioS2_CoalesceOnFree(t *testing.T) {
	a := newTestAllocator(t)

	p1, err := a.Allocate(100)
	require.NoError(t, err)
	p2, err := a.Allocate(100)
	require.NoError(t, err)
	p3, err := a.Allocate(100)
	require.NoError(t, err)
	_ = p3

	a.Free(p2)
	requireSound(t, a)

	a.Free(p1)
	requireSound(t, a)

	blocks := a.walkBlocks()
	require.Len(t, blocks, 2, "p1 and p2 should have coalesced into one free block ahead of p3")
}

// S3: write a pattern into a block, grow it with Resize, and confirm
// the original bytes survived the move (L5).
func TestScenarioS3_ResizeGrowPreservesContent(t *testing.T) {
	a := newTestAllocator(t)

	p, err := a.Allocate(2048)
	require.NoError(t, err)

	b := a.heap.Bytes()
	for i := int64(0); i < 2048; i++ {
		b[p+i] = 0xAB
	}

	q, err := a.Resize(p, 4096)
	require.NoError(t, err)
	require.NotEqual(t, None, q)

	b = a.heap.Bytes()
	for i := int64(0); i < 2048; i++ {
		require.Equalf(t, byte(0xAB), b[q+i], "byte %d not preserved across resize", i)
	}

	requireSound(t, a)
}

// S4: zero_allocate(64, 8) must return a fully zeroed 512-byte payload
// (L6).
func TestScenarioS4_ZeroAllocateZeroes(t *testing.T) {
	a := newTestAllocator(t)

	p, err := a.ZeroAllocate(64, 8)
	require.NoError(t, err)
	require.NotEqual(t, None, p)

	b := a.heap.Bytes()
	for i := int64(0); i < 512; i++ {
		require.Zerof(t, b[p+i], "byte %d of zero_allocate payload is not zero", i)
	}

	requireSound(t, a)
}

// S5: repeatedly allocate until the bounded heap is exhausted. Every
// successful call returns a distinct, aligned pointer; the failing call
// returns None without corrupting any prior allocation, and P1-P6 still
// hold afterward.
func TestScenarioS5_ExhaustionRecovers(t *testing.T) {
	heap := NewBoundedMemHeap(64 * 1024)
	a, err := New(heap)
	require.NoError(t, err)
	a.ChunkSize = 4096

	seen := map[int64]bool{}
	var failed bool
	for i := 0; i < 1000; i++ {
		p, err := a.Allocate(4096)
		if err != nil || p == None {
			failed = true
			break
		}

		requireAligned(t, p)
		require.False(t, seen[p], "pointer %#x handed out twice", p)
		seen[p] = true
	}

	require.True(t, failed, "expected the bounded heap to eventually refuse to grow")
	requireSound(t, a)
}

// S6: allocate(16) -> p; resize(p, 16) returns p unchanged (L2);
// resize(p, 0) frees p and returns None (L3); a subsequent allocate(16)
// reuses the same address.
func TestScenarioS6_ResizeIdentityAndFreeViaResize(t *testing.T) {
	a := newTestAllocator(t)

	p, err := a.Allocate(16)
	require.NoError(t, err)

	same, err := a.Resize(p, 16)
	require.NoError(t, err)
	require.Equal(t, p, same)

	none, err := a.Resize(p, 0)
	require.NoError(t, err)
	require.Equal(t, None, none)

	requireSound(t, a)

	q, err := a.Allocate(16)
	require.NoError(t, err)
	require.Equal(t, p, q)
}

func TestResizeNullBehavesAsAllocate(t *testing.T) {
	a := newTestAllocator(t)

	p, err := a.Resize(None, 32)
	require.NoError(t, err)
	require.NotEqual(t, None, p)
	requireAligned(t, p)
}

func TestAllocateZeroReturnsNone(t *testing.T) {
	a := newTestAllocator(t)

	p, err := a.Allocate(0)
	require.NoError(t, err)
	require.Equal(t, None, p)
}

func TestFreeNoneIsNoop(t *testing.T) {
	a := newTestAllocator(t)
	a.Free(None)
	requireSound(t, a)
}

func TestZeroAllocateOverflowReturnsError(t *testing.T) {
	a := newTestAllocator(t)

	p, err := a.ZeroAllocate(1<<62, 1<<62)
	require.Error(t, err)
	require.Equal(t, None, p)
}

// TestAllocateAlwaysAligned checks P1 (alignment) over a spread of
// sizes, then P3-P6 once they are all allocated.
func TestAllocateAlwaysAligned(t *testing.T) {
	a := newTestAllocator(t)

	for _, sz := range []int64{1, 2, 7, 8, 9, 15, 16, 17, 100, 1000, 4096, 4097} {
		p, err := a.Allocate(sz)
		require.NoError(t, err)
		requireAligned(t, p)
	}

	requireSound(t, a)
}

// TestRandomWorkload runs a long randomized mix of allocate, resize and
// free, asserting soundness every 50 operations and at the end - the style of stress
// test a boundary-tag allocator lives or dies by.
func TestRandomWorkload(t *testing.T) {
	a := newTestAllocator(t)
	a.ChunkSize = 512

	rng := rand.New(rand.NewSource(42))
	type live struct {
		ptr  int64
		size int64
	}
	var blocks []live

	for i := 0; i < 2000; i++ {
		switch {
		case len(blocks) == 0 || rng.Intn(3) != 0:
			size := int64(rng.Intn(500) + 1)
			p, err := a.Allocate(size)
			require.NoError(t, err)
			if p != None {
				requireAligned(t, p)
				blocks = append(blocks, live{p, size})
			}

		case rng.Intn(2) == 0:
			idx := rng.Intn(len(blocks))
			newSize := int64(rng.Intn(500) + 1)
			p, err := a.Resize(blocks[idx].ptr, newSize)
			require.NoError(t, err)
			if p != None {
				blocks[idx] = live{p, newSize}
			} else {
				blocks = append(blocks[:idx], blocks[idx+1:]...)
			}

		default:
			idx := rng.Intn(len(blocks))
			a.Free(blocks[idx].ptr)
			blocks = append(blocks[:idx], blocks[idx+1:]...)
		}

		if i%50 == 0 {
			requireSound(t, a)
		}
	}

	requireSound(t, a)
}
