// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Boundary-tag coalescing: merging a just-freed or just-extended block
// with its physically-adjacent free neighbors.

package galloc

// coalesce merges bp with any physically-adjacent free neighbors,
// rewrites the resulting block's header/footer, threads it onto the
// free list, and returns its (possibly new, if a left neighbor merged
// in) payload address.
//
// bp must carry a free header/footer and must not yet be linked into
// the free list - coalesce always performs exactly one insertFree.
//
// When bp sits immediately after the prologue, the "previous" block
// boundary tag it reads is the prologue's own footer, which is always
// allocated; that alone makes the prologue behave as a permanent left
// wall with no special-casing required.
func (a *Allocator) coalesce(bp int64) int64 {
	b := a.heap.Bytes()

	prevAlloc := blockAllocated(getWord(b, bp-dwordSize))
	next := nextBlkp(b, bp)
	nextAlloc := blockAllocated(getWord(b, hdrp(next)))
	size := blockSize(getWord(b, hdrp(bp)))

	switch {
	case prevAlloc && nextAlloc:
		// Case 1: isolated, nothing to merge.

	case prevAlloc && !nextAlloc:
		// Case 2: merge with the following free block.
		a.removeFree(next)
		size += blockSize(getWord(b, hdrp(next)))
		writeBlockHeaderFooter(b, bp, size, false)

	case !prevAlloc && nextAlloc:
		// Case 3: merge with the preceding free block.
		prev := prevBlkp(b, bp)
		a.removeFree(prev)
		size += blockSize(getWord(b, hdrp(prev)))
		bp = prev
		writeBlockHeaderFooter(b, bp, size, false)

	default:
		// Case 4: merge with both neighbors.
		prev := prevBlkp(b, bp)
		a.removeFree(prev)
		a.removeFree(next)
		size += blockSize(getWord(b, hdrp(prev))) + blockSize(getWord(b, hdrp(next)))
		bp = prev
		writeBlockHeaderFooter(b, bp, size, false)
	}

	a.insertFree(bp)
	return bp
}
