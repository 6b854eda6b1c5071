// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A debug-only consistency checker. It never mutates allocator state.

package galloc

import (
	"fmt"
	"io"
)

// Check walks the heap from the prologue to the epilogue, verifying the
// structural invariants the rest of the package depends on: the
// prologue carries its fixed encoding, every block is double-word
// aligned, and every header matches its footer. It reports problems to
// w as it finds them rather than stopping at the first one, so a single
// run surfaces everything wrong with the heap, and returns how many it
// found. When verbose is true, every block visited is also described on
// w.
func (a *Allocator) Check(verbose bool, w io.Writer) int {
	b := a.heap.Bytes()
	problems := 0

	report := func(format string, args ...interface{}) {
		problems++
		fmt.Fprintf(w, format+"\n", args...)
	}

	prologueHdr := getWord(b, hdrp(a.prologueBp))
	if blockSize(prologueHdr) != minBlockSize || !blockAllocated(prologueHdr) {
		report("bad prologue header at %#x", hdrp(a.prologueBp))
	}

	bp := a.prologueBp
	for {
		hdr := getWord(b, hdrp(bp))
		size := blockSize(hdr)

		if verbose {
			fmt.Fprintf(w, "block %#x: size %d allocated %v\n", bp, size, blockAllocated(hdr))
		}

		if size == 0 {
			break
		}

		if bp%dwordSize != 0 {
			report("block at %#x is not double-word aligned", bp)
		}

		if ftr := getWord(b, ftrp(b, bp)); hdr != ftr {
			report("block at %#x: header %#x does not match footer %#x", bp, hdr, ftr)
		}

		bp = nextBlkp(b, bp)
	}

	epilogueHdr := getWord(b, hdrp(bp))
	if blockSize(epilogueHdr) != 0 || !blockAllocated(epilogueHdr) {
		report("bad epilogue header at %#x", hdrp(bp))
	}

	return problems
}
