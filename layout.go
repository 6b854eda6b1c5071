// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Block layout: header/footer packing and block-to-block navigation.
// Every address handled here is a "bp" - a block's payload address, the
// same kind of value Allocate/Resize/Free hand back and forth with
// callers.

package galloc

import "encoding/binary"

const (
	wordSize  = 4 // header/footer word
	dwordSize = 8 // double-word: alignment unit and pointer-slot size

	// minBlockSize is the smallest block any allocation can occupy:
	// header + pred + succ + footer.
	minBlockSize = 24

	// chunkSize is the default number of bytes requested from the
	// Heap on each extension, and the floor on every extension's
	// size.
	chunkSize = 4096

	allocatedBit uint32 = 0x1
)

// None is the sentinel payload address meaning "no block". It is
// returned by Allocate, Resize and ZeroAllocate on failure, and is
// accepted by Free and Resize in place of a real payload address.
//
// Offset 0 is never a live payload address: the heap's first word is
// always the alignment padding that precedes the prologue block, so
// None can never collide with a value Allocate legitimately returns.
const None int64 = 0

// pack combines a block size and its allocated flag into the word
// stored in a header or footer.
func pack(size int64, allocated bool) uint32 {
	w := uint32(size)
	if allocated {
		w |= allocatedBit
	}
	return w
}

func blockSize(w uint32) int64     { return int64(w &^ allocatedBit) }
func blockAllocated(w uint32) bool { return w&allocatedBit != 0 }

func getWord(b []byte, off int64) uint32    { return binary.BigEndian.Uint32(b[off:]) }
func putWord(b []byte, off int64, v uint32) { binary.BigEndian.PutUint32(b[off:], v) }
func getAddr(b []byte, off int64) int64     { return int64(binary.BigEndian.Uint64(b[off:])) }
func putAddr(b []byte, off int64, v int64)  { binary.BigEndian.PutUint64(b[off:], uint64(v)) }

// align rounds size up to the nearest multiple of dwordSize.
func align(size int64) int64 {
	return (size + dwordSize - 1) &^ (dwordSize - 1)
}

// hdrp returns the offset of bp's header word.
func hdrp(bp int64) int64 { return bp - wordSize }

// ftrp returns the offset of bp's footer word, given bp's current size.
func ftrp(b []byte, bp int64) int64 {
	return bp + blockSize(getWord(b, hdrp(bp))) - dwordSize
}

// nextBlkp returns the payload address of the block physically
// following bp.
func nextBlkp(b []byte, bp int64) int64 {
	return bp + blockSize(getWord(b, hdrp(bp)))
}

// prevBlkp returns the payload address of the block physically
// preceding bp, read via the boundary tag: the word immediately before
// bp's header is the previous block's footer.
func prevBlkp(b []byte, bp int64) int64 {
	return bp - blockSize(getWord(b, bp-dwordSize))
}

// predOff and succOff locate the predecessor/successor link slots
// inside a free block's payload. They are only meaningful while bp is
// free; once allocated that space belongs to the caller.
func predOff(bp int64) int64 { return bp }
func succOff(bp int64) int64 { return bp + dwordSize }

// writeBlockHeaderFooter stamps bp's header and footer with size and
// allocated.
func writeBlockHeaderFooter(b []byte, bp, size int64, allocated bool) {
	w := pack(size, allocated)
	putWord(b, hdrp(bp), w)
	putWord(b, bp+size-dwordSize, w)
}
