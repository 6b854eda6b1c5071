// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package galloc implements a dynamic memory allocator over a single,
// contiguous, monotonically-growable heap region.
//
// The heap itself is supplied by a Heap (an sbrk-style collaborator, see
// heap.go); galloc owns everything above that line: the block format,
// the explicit free list, splitting, coalescing and heap extension.
//
// # Heap layout
//
// The managed region, low to high address, looks like:
//
//	+--------++--------------------------------++--- ... ---++----------+
//	| pad(4) || prologue: hdr(4) pred(8) succ(8) ftr(4) = 24 ||  blocks   || epi(4)
//	+--------++--------------------------------++--- ... ---++----------+
//
// The prologue is a permanently allocated sentinel of the minimum block
// size; its payload doubles as the free list's fixed tail node, so a
// first-fit walk terminates the instant it reaches an allocated header
// without any separate "end of list" check. The epilogue is a bare
// header word (size 0, allocated) marking the current break; it carries
// no footer and is rewritten every time the heap grows.
//
// # Block format
//
//	+--------+------------------------------------------+--------+
//	| header |                 payload                   | footer |
//	+--------+------------------------------------------+--------+
//	           ^ bp (the address returned to callers)
//
// Header and footer are 4-byte words packing a size (bytes, including
// header+payload+footer) with the allocated flag in bit 0. They are
// bit-identical on every live block; the footer exists so a block's
// physical predecessor can be inspected in O(1) from the block that
// follows it (the "boundary tag" trick). When a block is free, its
// payload's first double-word holds a predecessor link and the next
// double-word a successor link, both addresses of other free blocks'
// payloads (or None). When a block is allocated the payload is opaque.
//
// All block sizes are a multiple of 8 (double-word) and never smaller
// than minBlockSize (24 bytes: header + pred + succ + footer).
//
// galloc is not safe for concurrent use. All exported methods on
// Allocator must be called from a single goroutine, or under a caller-
// supplied mutex.
package galloc
