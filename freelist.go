// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The explicit doubly-linked free list, threaded through free blocks'
// payloads. No ordering is maintained among free blocks: new blocks are
// always linked in at the head (LIFO).

package galloc

// insertFree links free block bp onto the head of the free list. bp
// must already carry a free header/footer; insertFree only threads the
// predecessor/successor slots.
func (a *Allocator) insertFree(bp int64) {
	b := a.heap.Bytes()
	putAddr(b, succOff(bp), a.freeHead)
	putAddr(b, predOff(a.freeHead), bp)
	putAddr(b, predOff(bp), None)
	a.freeHead = bp
}

// removeFree unlinks bp from the free list. bp must currently be a
// member of the list; the prologue, which doubles as the list's
// permanent tail node, is never passed here.
func (a *Allocator) removeFree(bp int64) {
	b := a.heap.Bytes()
	pred := getAddr(b, predOff(bp))
	succ := getAddr(b, succOff(bp))

	if pred != None {
		putAddr(b, succOff(pred), succ)
	} else {
		a.freeHead = succ
	}

	putAddr(b, predOff(succ), pred)
}
