// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package galloc

// Heap is the sbrk-style heap provider the allocator is built on top of.
// It supplies a single, contiguous, monotonically-growable byte range
// and nothing else: no block structure, no free list, no knowledge of
// what's stored in it.
//
// A Heap is deterministic, single-owner and non-reentrant: the
// Allocator never calls it from more than one goroutine and never lets
// two calls overlap. Implementations are free to assume the same.
type Heap interface {
	// Sbrk grows the managed region by n bytes (n must be >= 0) and
	// returns the address of the first byte of the new region, i.e.
	// the break as it stood immediately before this call. Sbrk fails,
	// leaving the region unchanged, if the provider cannot or will not
	// grow by n bytes.
	Sbrk(n int64) (int64, error)

	// Break reports the current heap break: every address in
	// [0, Break()) is backed by real, addressable storage.
	Break() int64

	// Bytes exposes the entire managed region for direct reads and
	// writes. The returned slice aliases the Heap's storage and is
	// only valid until the next call to Sbrk, which may move it.
	Bytes() []byte
}
