// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command galloc drives a galloc.Allocator through randomized
// workloads and the literal scenarios from the allocator's test suite,
// reporting heap growth and consistency along the way. It plays the
// role lldb's lab/1 and db_bench harnesses play for lldb.Allocator.
package main

import (
	"fmt"
	"math/rand"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/willdarling/galloc"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "galloc",
		Short: "Exercise the galloc boundary-tag allocator",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newScenarioCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		iterations int
		seed       int64
		chunkSize  int64
		maxSize    int64
		checkEvery int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay a randomized allocate/resize/free workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			heap := galloc.NewBoundedMemHeap(maxSize)
			a, err := galloc.New(heap)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			a.ChunkSize = chunkSize

			if err := runWorkload(cmd.OutOrStdout(), a, heap, iterations, seed, checkEvery); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 20000, "number of allocate/resize/free operations to replay")
	cmd.Flags().Int64Var(&seed, "seed", 42, "PRNG seed, for reproducible runs")
	cmd.Flags().Int64Var(&chunkSize, "chunk-size", 4096, "bytes requested per heap extension")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "cap on heap growth, 0 for unlimited")
	cmd.Flags().IntVar(&checkEvery, "check-every", 500, "run the consistency checker every N operations, 0 to disable")
	return cmd
}

// runWorkload mirrors TestRandomWorkload's mix, but against a real
// io.Writer report instead of *testing.T assertions.
func runWorkload(w fmtWriter, a *galloc.Allocator, heap *galloc.MemHeap, iterations int, seed int64, checkEvery int) error {
	rng := rand.New(rand.NewSource(seed))

	type live struct {
		ptr  int64
		size int64
	}
	var blocks []live
	var allocated, freed int

	for i := 0; i < iterations; i++ {
		switch {
		case len(blocks) == 0 || rng.Intn(3) != 0:
			size := int64(rng.Intn(4096) + 1)
			p, err := a.Allocate(size)
			if err != nil {
				return fmt.Errorf("allocate at iteration %d: %w", i, err)
			}
			if p != galloc.None {
				blocks = append(blocks, live{p, size})
				allocated++
			}

		case rng.Intn(2) == 0:
			idx := rng.Intn(len(blocks))
			newSize := int64(rng.Intn(4096) + 1)
			p, err := a.Resize(blocks[idx].ptr, newSize)
			if err != nil {
				return fmt.Errorf("resize at iteration %d: %w", i, err)
			}
			if p != galloc.None {
				blocks[idx] = live{p, newSize}
			} else {
				blocks = append(blocks[:idx], blocks[idx+1:]...)
				freed++
			}

		default:
			idx := rng.Intn(len(blocks))
			a.Free(blocks[idx].ptr)
			blocks = append(blocks[:idx], blocks[idx+1:]...)
			freed++
		}

		if checkEvery > 0 && i%checkEvery == 0 {
			if problems := a.Check(false, w); problems > 0 {
				return fmt.Errorf("consistency check failed after %d operations (%d problems)", i, problems)
			}
		}
	}

	problems := a.Check(false, w)
	fmt.Fprintf(w, "iterations: %d  allocated: %d  freed: %d  live: %d\n", iterations, allocated, freed, len(blocks))
	fmt.Fprintf(w, "heap size: %s  problems found: %d\n", humanize.Bytes(uint64(heap.Break())), problems)
	if problems > 0 {
		return fmt.Errorf("final consistency check found %d problems", problems)
	}
	return nil
}

// fmtWriter is the minimal surface runWorkload and Check both need;
// *cobra.Command's OutOrStdout() satisfies it directly.
type fmtWriter interface {
	Write(p []byte) (n int, err error)
}

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "scenario [name]",
		Short:     "Run one of the allocator's literal end-to-end scenarios",
		ValidArgs: []string{"s1", "s2", "s3", "s4", "s5", "s6"},
		Args:      cobra.ExactValidArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fn, ok := scenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q", args[0])
			}
			return fn(w)
		},
	}
	return cmd
}

var scenarios = map[string]func(fmtWriter) error{
	"s1": scenarioS1,
	"s2": scenarioS2,
	"s3": scenarioS3,
	"s4": scenarioS4,
	"s5": scenarioS5,
	"s6": scenarioS6,
}

func scenarioS1(w fmtWriter) error {
	a, err := galloc.New(galloc.NewMemHeap())
	if err != nil {
		return err
	}

	p1, err := a.Allocate(1)
	if err != nil {
		return err
	}
	p2, err := a.Allocate(1)
	if err != nil {
		return err
	}
	if p2 == p1 {
		return fmt.Errorf("expected distinct pointers, got %#x twice", p1)
	}
	a.Free(p1)
	p3, err := a.Allocate(1)
	if err != nil {
		return err
	}
	if p3 != p1 {
		return fmt.Errorf("expected LIFO reuse: p3=%#x, p1=%#x", p3, p1)
	}

	fmt.Fprintf(w, "s1 ok: p1=%#x p2=%#x p3=%#x\n", p1, p2, p3)
	return nil
}

func scenarioS2(w fmtWriter) error {
	a, err := galloc.New(galloc.NewMemHeap())
	if err != nil {
		return err
	}

	p1, err := a.Allocate(100)
	if err != nil {
		return err
	}
	p2, err := a.Allocate(100)
	if err != nil {
		return err
	}
	p3, err := a.Allocate(100)
	if err != nil {
		return err
	}

	a.Free(p2)
	a.Free(p1)

	var diag simpleBuffer
	if problems := a.Check(false, &diag); problems > 0 {
		return fmt.Errorf("heap unsound after coalescing: %s", diag.String())
	}

	fmt.Fprintf(w, "s2 ok: p1=%#x p2=%#x p3=%#x coalesced cleanly\n", p1, p2, p3)
	return nil
}

func scenarioS3(w fmtWriter) error {
	heap := galloc.NewMemHeap()
	a, err := galloc.New(heap)
	if err != nil {
		return err
	}

	p, err := a.Allocate(2048)
	if err != nil {
		return err
	}

	for i := int64(0); i < 2048; i++ {
		heap.Bytes()[p+i] = 0xAB
	}

	q, err := a.Resize(p, 4096)
	if err != nil {
		return err
	}

	b := heap.Bytes()
	for i := int64(0); i < 2048; i++ {
		if b[q+i] != 0xAB {
			return fmt.Errorf("byte %d not preserved across resize", i)
		}
	}

	fmt.Fprintf(w, "s3 ok: grew %#x -> %#x, 2048 bytes preserved\n", p, q)
	return nil
}

func scenarioS4(w fmtWriter) error {
	heap := galloc.NewMemHeap()
	a, err := galloc.New(heap)
	if err != nil {
		return err
	}

	p, err := a.ZeroAllocate(64, 8)
	if err != nil {
		return err
	}

	b := heap.Bytes()
	for i := int64(0); i < 512; i++ {
		if b[p+i] != 0 {
			return fmt.Errorf("byte %d of zero_allocate payload is not zero", i)
		}
	}

	fmt.Fprintf(w, "s4 ok: 512 zeroed bytes at %#x\n", p)
	return nil
}

func scenarioS5(w fmtWriter) error {
	heap := galloc.NewBoundedMemHeap(64 * 1024)
	a, err := galloc.New(heap)
	if err != nil {
		return err
	}
	a.ChunkSize = 4096

	seen := map[int64]bool{}
	count := 0
	for i := 0; i < 1000; i++ {
		p, err := a.Allocate(4096)
		if err != nil || p == galloc.None {
			break
		}
		if seen[p] {
			return fmt.Errorf("pointer %#x handed out twice", p)
		}
		seen[p] = true
		count++
	}

	var diag simpleBuffer
	if problems := a.Check(false, &diag); problems > 0 {
		return fmt.Errorf("heap unsound after exhaustion: %s", diag.String())
	}

	fmt.Fprintf(w, "s5 ok: %d allocations before exhaustion, heap size %s\n", count, humanize.Bytes(uint64(heap.Break())))
	return nil
}

func scenarioS6(w fmtWriter) error {
	a, err := galloc.New(galloc.NewMemHeap())
	if err != nil {
		return err
	}

	p, err := a.Allocate(16)
	if err != nil {
		return err
	}
	same, err := a.Resize(p, 16)
	if err != nil {
		return err
	}
	if same != p {
		return fmt.Errorf("resize identity failed: got %#x, want %#x", same, p)
	}

	none, err := a.Resize(p, 0)
	if err != nil {
		return err
	}
	if none != galloc.None {
		return fmt.Errorf("resize-to-zero should return None, got %#x", none)
	}

	q, err := a.Allocate(16)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "s6 ok: p=%#x reused as q=%#x after resize-to-zero\n", p, q)
	return nil
}

// simpleBuffer is a tiny io.Writer sink so scenario helpers can collect
// Check's diagnostic text into an error message without importing
// bytes.Buffer's whole API.
type simpleBuffer struct {
	data []byte
}

func (s *simpleBuffer) Write(p []byte) (int, error) {
	s.data = append(s.data, p...)
	return len(p), nil
}

func (s *simpleBuffer) String() string { return string(s.data) }
