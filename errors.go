// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package galloc

import "fmt"

// ErrInvalid reports a request the contract forbids outright: a negative
// size passed to Sbrk, or ZeroAllocate arguments that are negative or
// whose product overflows. Pointers passed to Free and Resize are not
// validated.
type ErrInvalid struct {
	Message string
	Arg     int64
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("%s (%#x)", e.Message, e.Arg)
}

// ErrOutOfMemory reports that the Heap provider refused to extend the
// managed region far enough to satisfy a request.
type ErrOutOfMemory struct {
	Requested int64
}

func (e *ErrOutOfMemory) Error() string {
	return fmt.Sprintf("out of memory: heap provider refused to extend by %d bytes", e.Requested)
}

// ErrCorruption describes an internal consistency violation of the kind
// Check looks for: a header that disagrees with its footer, a misaligned
// block, or a missing/garbled prologue or epilogue. No function in this
// package returns it; Check writes its findings to its io.Writer as
// plain text. The allocator has no
// recovery strategy for these; they indicate either a bug in the
// allocator itself or a caller that wrote outside the bounds of a
// payload it was given.
type ErrCorruption struct {
	Message string
	Offset  int64
}

func (e *ErrCorruption) Error() string {
	return fmt.Sprintf("heap corruption at offset %#x: %s", e.Offset, e.Message)
}
