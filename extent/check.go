// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package extent

import "fmt"

// Check verifies invariants I1-I6 and P1-P6 hold across the three
// indexes. It is O(n) and meant for debug builds and tests, not the
// hot path: a violation here is a programming bug, not a user error.
func (e *Engine) Check() error {
	free := e.freeByAddr.Items()
	alloc := e.allocByAddr.Items()

	// I1: every extent fits within [0, total).
	for _, f := range free {
		if f.Key < 0 || f.Key+f.Value > e.total {
			return fmt.Errorf("extent: free block (%d, %d) exceeds [0, %d)", f.Key, f.Value, e.total)
		}
	}
	for _, a := range alloc {
		if a.Key < 0 || a.Key+a.Value > e.total {
			return fmt.Errorf("extent: allocated block (%d, %d) exceeds [0, %d)", a.Key, a.Value, e.total)
		}
	}

	// I2: free extents pairwise disjoint and non-adjacent.
	for i := 1; i < len(free); i++ {
		if free[i-1].Key+free[i-1].Value >= free[i].Key {
			return fmt.Errorf("extent: free blocks (%d,%d) and (%d,%d) overlap or are adjacent",
				free[i-1].Key, free[i-1].Value, free[i].Key, free[i].Value)
		}
	}

	// I3: allocated extents pairwise disjoint.
	for i := 1; i < len(alloc); i++ {
		if alloc[i-1].Key+alloc[i-1].Value > alloc[i].Key {
			return fmt.Errorf("extent: allocated blocks (%d,%d) and (%d,%d) overlap",
				alloc[i-1].Key, alloc[i-1].Value, alloc[i].Key, alloc[i].Value)
		}
	}

	// I4/P3: no free extent overlaps any allocated extent (sharing a
	// boundary is fine).
	for _, f := range free {
		for _, a := range alloc {
			if f.Key < a.Key+a.Value && a.Key < f.Key+f.Value {
				return fmt.Errorf("extent: free (%d,%d) overlaps allocated (%d,%d)",
					f.Key, f.Value, a.Key, a.Value)
			}
		}
	}

	// I6/P4: free + allocated covers [0, total) exactly.
	var sum int64
	for _, f := range free {
		sum += f.Value
	}
	for _, a := range alloc {
		sum += a.Value
	}
	if sum != e.total {
		return fmt.Errorf("extent: free+allocated sizes sum to %d, want %d", sum, e.total)
	}

	// I5/P5/P6: freeByAddr and freeBySize describe the same set.
	bySize := e.freeBySize.Items()
	var bySizeCount int
	for _, entry := range bySize {
		for _, start := range entry.Values {
			bySizeCount++
			size, ok := e.freeByAddr.Query(start)
			if !ok {
				return fmt.Errorf("extent: freeBySize has start %d under size %d, missing from freeByAddr", start, entry.Key)
			}
			if size != entry.Key {
				return fmt.Errorf("extent: freeByAddr[%d] = %d, want %d (from freeBySize)", start, size, entry.Key)
			}
		}
	}
	if bySizeCount != len(free) {
		return fmt.Errorf("extent: freeBySize has %d entries, freeByAddr has %d", bySizeCount, len(free))
	}

	return nil
}

// MustCheck calls Check and panics if it fails: index inconsistency is
// a programming bug, not a user error. The tests call it; the CLI
// driver does not.
func (e *Engine) MustCheck() {
	if err := e.Check(); err != nil {
		panic(err)
	}
}
