// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package galloc

import "github.com/cznic/mathutil"

// Allocator manages a single contiguous, monotonically-growable heap on
// top of a Heap provider. It implements the classical allocate / free /
// resize / zero-allocate operations with an explicit doubly-linked free
// list and boundary-tag coalescing, choosing the first free block large
// enough to satisfy a request.
//
// Allocator is not safe for concurrent use; callers must serialize all
// operations on a given instance themselves, and must never invoke one
// from a signal handler that could interrupt another call.
type Allocator struct {
	heap Heap

	prologueBp  int64 // payload address of the permanent prologue block
	freeHead    int64 // head of the free list; equals prologueBp when empty
	epilogueOff int64 // offset of the current epilogue header word

	// ChunkSize is the minimum number of bytes requested from the
	// Heap on every extension. It defaults to 4096; tests lower it
	// to exercise heap extension more often.
	ChunkSize int64
}

// New creates an Allocator over heap and initializes it. heap must be
// freshly created (Break() == 0); sharing a non-empty Heap between two
// Allocators, or reusing one after it has been written to directly, is
// undefined.
func New(heap Heap) (*Allocator, error) {
	a := &Allocator{heap: heap, ChunkSize: chunkSize}
	if err := a.init(); err != nil {
		return nil, err
	}

	return a, nil
}

// init lays down the padding word, prologue and epilogue, points the
// free list at the (empty) prologue, and performs the first extension.
func (a *Allocator) init() error {
	base, err := a.heap.Sbrk(2 * minBlockSize)
	if err != nil {
		return err
	}

	b := a.heap.Bytes()
	putWord(b, base, 0) // alignment padding

	prologueBp := base + dwordSize
	writeBlockHeaderFooter(b, prologueBp, minBlockSize, true)
	putAddr(b, predOff(prologueBp), None)
	putAddr(b, succOff(prologueBp), None)

	a.epilogueOff = ftrp(b, prologueBp) + wordSize // right after prologue's footer
	putWord(b, a.epilogueOff, pack(0, true))

	a.prologueBp = prologueBp
	a.freeHead = prologueBp

	_, err = a.extend(a.ChunkSize / wordSize)
	return err
}

// extend grows the heap by at least nWords words, framing the new
// region as a single free block whose header overwrites the old
// epilogue and whose footer is followed by a fresh epilogue at the new
// break. The block is folded into the heap via coalesce before being
// returned, so it may come back larger (or at a lower address) than
// requested if it merged with a preceding free block.
func (a *Allocator) extend(nWords int64) (int64, error) {
	if nWords < 0 {
		nWords = 0
	}
	if nWords%2 != 0 {
		nWords++
	}

	size := nWords * wordSize
	if size < minBlockSize {
		size = minBlockSize
	}

	bp := a.epilogueOff + wordSize
	needed := a.epilogueOff + size + wordSize
	if grow := needed - a.heap.Break(); grow > 0 {
		if _, err := a.heap.Sbrk(grow); err != nil {
			return None, err
		}
	}

	b := a.heap.Bytes()
	writeBlockHeaderFooter(b, bp, size, false)
	a.epilogueOff = bp + size - wordSize
	putWord(b, a.epilogueOff, pack(0, true))

	return a.coalesce(bp), nil
}

// adjustedSize converts a caller-requested payload size into the block
// size that must actually be carved out of the heap: payload plus
// header and footer overhead, rounded up to alignment, never smaller
// than minBlockSize.
func adjustedSize(size int64) int64 {
	a := align(size + dwordSize)
	return mathutil.MaxInt64(a, minBlockSize)
}

// Allocate reserves at least size bytes and returns the address of the
// payload, or None if size is zero or the heap could not be extended
// far enough.
func (a *Allocator) Allocate(size int64) (int64, error) {
	if size <= 0 {
		return None, nil
	}

	asize := adjustedSize(size)

	if bp := a.findFit(asize); bp != None {
		return a.place(bp, asize), nil
	}

	extendBytes := mathutil.MaxInt64(asize, a.ChunkSize)
	bp, err := a.extend(extendBytes / wordSize)
	if err != nil {
		return None, err
	}

	return a.place(bp, asize), nil
}

// findFit performs a first-fit scan of the free list: it walks
// successor links from the head until it finds a block whose size
// satisfies asize or reaches a block with the allocated bit set - which
// is guaranteed to be the prologue, since the free list always
// terminates there. It returns None on a miss.
func (a *Allocator) findFit(asize int64) int64 {
	b := a.heap.Bytes()
	for bp := a.freeHead; !blockAllocated(getWord(b, hdrp(bp))); bp = getAddr(b, succOff(bp)) {
		if blockSize(getWord(b, hdrp(bp))) >= asize {
			return bp
		}
	}

	return None
}

// place transitions free block bp (of size c) into an allocated block
// delivering asize bytes, splitting off and recycling the remainder
// when it would still be at least minBlockSize, or absorbing the whole
// block as internal fragmentation otherwise.
func (a *Allocator) place(bp, asize int64) int64 {
	b := a.heap.Bytes()
	c := blockSize(getWord(b, hdrp(bp)))

	if c-asize >= minBlockSize {
		writeBlockHeaderFooter(b, bp, asize, true)
		a.removeFree(bp)

		rem := bp + asize
		writeBlockHeaderFooter(b, rem, c-asize, false)
		a.coalesce(rem)
		return bp
	}

	writeBlockHeaderFooter(b, bp, c, true)
	a.removeFree(bp)
	return bp
}

// Free releases the block at ptr. Freeing None is a no-op; freeing a
// pointer not currently allocated corrupts the heap.
func (a *Allocator) Free(ptr int64) {
	if ptr == None {
		return
	}

	b := a.heap.Bytes()
	size := blockSize(getWord(b, hdrp(ptr)))
	writeBlockHeaderFooter(b, ptr, size, false)
	a.coalesce(ptr)
}

// Resize changes the block at ptr to hold size bytes, returning the
// (possibly new) payload address, or None.
//
//   - ptr == None behaves as Allocate(size).
//   - size <= 0 frees ptr and returns None.
//   - A shrink that would leave a remainder no larger than minBlockSize
//     is not worth splitting and returns ptr unchanged, slack and all.
//   - A grow allocates fresh space, copies the old payload, frees ptr,
//     and returns the new address; on failure the original block is
//     left untouched and None is returned.
func (a *Allocator) Resize(ptr, size int64) (int64, error) {
	if ptr == None {
		return a.Allocate(size)
	}

	if size <= 0 {
		a.Free(ptr)
		return None, nil
	}

	b := a.heap.Bytes()
	asize := adjustedSize(size)
	c := blockSize(getWord(b, hdrp(ptr)))

	if asize == c {
		return ptr, nil
	}

	if asize < c {
		if c-asize <= minBlockSize {
			return ptr, nil
		}

		writeBlockHeaderFooter(b, ptr, asize, true)
		rem := ptr + asize
		putWord(b, hdrp(rem), pack(c-asize, false))
		a.Free(rem)
		return ptr, nil
	}

	newPtr, err := a.Allocate(size)
	if err != nil || newPtr == None {
		return None, err
	}

	n := mathutil.MinInt64(size, c-dwordSize)
	nb := a.heap.Bytes()
	copy(nb[newPtr:newPtr+n], nb[ptr:ptr+n])
	a.Free(ptr)
	return newPtr, nil
}

// ZeroAllocate allocates count*elemSize bytes and zeroes them before
// returning the payload address. It returns None, with an error, if the
// multiplication overflows or the underlying allocation fails; in
// either failure case the payload is never touched.
func (a *Allocator) ZeroAllocate(count, elemSize int64) (int64, error) {
	if count < 0 || elemSize < 0 {
		return None, &ErrInvalid{Message: "ZeroAllocate: negative count or element size", Arg: count}
	}

	total, overflow := mulOverflows(count, elemSize)
	if overflow {
		return None, &ErrInvalid{Message: "ZeroAllocate: count*elemSize overflows", Arg: count}
	}

	ptr, err := a.Allocate(total)
	if err != nil || ptr == None {
		return None, err
	}

	clear(a.heap.Bytes()[ptr : ptr+total])
	return ptr, nil
}

func mulOverflows(x, y int64) (product int64, overflow bool) {
	if x == 0 || y == 0 {
		return 0, false
	}

	p := x * y
	if p/x != y {
		return 0, true
	}

	return p, false
}
