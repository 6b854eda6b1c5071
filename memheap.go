// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A memory-only implementation of Heap.

package galloc

import "fmt"

var _ Heap = (*MemHeap)(nil) // Ensure MemHeap is a Heap.

// MemHeap is an in-process Heap backed by a single growable []byte. It
// plays the role a real sbrk(2) plays for a process: new memory is
// always appended at the current break, existing bytes never move
// except to a larger backing array, and nothing is ever returned to the
// "operating system" (there is no shrink path, matching the allocator's
// own no-goal of returning memory).
//
// MemHeap is not safe for concurrent use.
type MemHeap struct {
	buf []byte

	// MaxSize caps how large the region may grow, simulating an
	// operating system (or ulimit) refusing further growth. Zero
	// means unlimited. Tests use this to force OutOfMemory without
	// allocating gigabytes of real memory.
	MaxSize int64
}

// NewMemHeap returns an empty MemHeap with no size limit.
func NewMemHeap() *MemHeap {
	return &MemHeap{}
}

// NewBoundedMemHeap returns an empty MemHeap that refuses to grow past
// maxSize bytes.
func NewBoundedMemHeap(maxSize int64) *MemHeap {
	return &MemHeap{MaxSize: maxSize}
}

// Sbrk implements Heap.
func (h *MemHeap) Sbrk(n int64) (int64, error) {
	if n < 0 {
		return 0, &ErrInvalid{Message: "Sbrk: negative size", Arg: n}
	}

	old := int64(len(h.buf))
	if h.MaxSize != 0 && old+n > h.MaxSize {
		return 0, &ErrOutOfMemory{Requested: n}
	}

	h.buf = append(h.buf, make([]byte, n)...)
	return old, nil
}

// Break implements Heap.
func (h *MemHeap) Break() int64 { return int64(len(h.buf)) }

// Bytes implements Heap.
func (h *MemHeap) Bytes() []byte { return h.buf }

func (h *MemHeap) String() string {
	return fmt.Sprintf("MemHeap{size: %d, max: %d}", len(h.buf), h.MaxSize)
}
