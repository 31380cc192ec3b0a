// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package extent

import (
	"math/rand"
	"testing"
)

const total = 1024

func freeItems(t *testing.T, e *Engine) []Extent {
	t.Helper()
	var out []Extent
	for _, p := range e.FreeByAddr().Items() {
		out = append(out, Extent{Start: p.Key, Size: p.Value})
	}
	return out
}

func TestTrailingSplit(t *testing.T) {
	e := NewEngine(total)
	if err := e.Allocate(0, 100); err != nil {
		t.Fatalf("Allocate(0, 100): %v", err)
	}
	e.MustCheck()
	free := freeItems(t, e)
	if len(free) != 1 || free[0] != (Extent{100, 924}) {
		t.Fatalf("free = %v; want [{100 924}]", free)
	}
	if err := e.Deallocate(0, 100); err != nil {
		t.Fatalf("Deallocate(0, 100): %v", err)
	}
	e.MustCheck()
	free = freeItems(t, e)
	if len(free) != 1 || free[0] != (Extent{0, 1024}) {
		t.Fatalf("free = %v; want [{0 1024}]", free)
	}
}

func TestTwoBlockCoalesce(t *testing.T) {
	e := NewEngine(total)
	mustAllocate(t, e, 0, 100)
	mustAllocate(t, e, 100, 100)
	mustDeallocate(t, e, 0, 100)
	mustDeallocate(t, e, 100, 100)
	e.MustCheck()
	free := freeItems(t, e)
	if len(free) != 1 || free[0] != (Extent{0, 1024}) {
		t.Fatalf("free = %v; want [{0 1024}]", free)
	}
}

func TestExplicitAddressAllocation(t *testing.T) {
	e := NewEngine(total)
	mustAllocate(t, e, 500, 100)
	e.MustCheck()
	free := freeItems(t, e)
	if len(free) != 2 || free[0] != (Extent{0, 500}) || free[1] != (Extent{600, 424}) {
		t.Fatalf("free = %v; want [{0 500} {600 424}]", free)
	}
}

func TestExplicitAddressRejectsInsideAllocated(t *testing.T) {
	e := NewEngine(total)
	mustAllocate(t, e, 0, 100)
	if err := e.Allocate(25, 50); err == nil {
		t.Fatal("Allocate(25, 50) should fail: 25 lies inside the allocated [0,100) range")
	}
	e.MustCheck()
}

func TestDeallocateSubRangeOfCoalescedParent(t *testing.T) {
	e := NewEngine(total)
	mustAllocate(t, e, 0, 100)
	mustAllocate(t, e, 100, 100)
	// After coalescing these form one allocated entry (0, 200); releasing
	// just the second half must still work.
	if err := e.Deallocate(100, 100); err != nil {
		t.Fatalf("Deallocate(100, 100): %v", err)
	}
	e.MustCheck()
	free := freeItems(t, e)
	if len(free) != 1 || free[0] != (Extent{100, 924}) {
		t.Fatalf("free = %v; want [{100 924}]", free)
	}
}

func TestCoalesceAllocatedDisabled(t *testing.T) {
	e := NewEngine(total)
	e.CoalesceAllocated = false
	mustAllocate(t, e, 0, 100)
	mustAllocate(t, e, 100, 100)
	items := e.AllocByAddr().Items()
	if len(items) != 2 {
		t.Fatalf("allocated entries = %d; want 2 with coalescing disabled", len(items))
	}
}

func TestRoundTripR1(t *testing.T) {
	e := NewEngine(total)
	before := freeItems(t, e)
	mustAllocate(t, e, 200, 50)
	mustDeallocate(t, e, 200, 50)
	after := freeItems(t, e)
	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("round trip changed free state: before=%v after=%v", before, after)
	}
}

func TestStatefulPropertyReplay(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	e := NewEngine(total)
	var live []Extent
	for i := 0; i < 500; i++ {
		if len(live) == 0 || rnd.Intn(2) == 0 {
			size := int64(1 + rnd.Intn(64))
			start, ok := firstFreeStartOfAtLeast(e, size)
			if !ok {
				continue
			}
			if err := e.Allocate(start, size); err != nil {
				t.Fatalf("Allocate(%d, %d): %v", start, size, err)
			}
			live = append(live, Extent{start, size})
		} else {
			idx := rnd.Intn(len(live))
			ext := live[idx]
			if err := e.Deallocate(ext.Start, ext.Size); err != nil {
				t.Fatalf("Deallocate(%d, %d): %v", ext.Start, ext.Size, err)
			}
			live = append(live[:idx], live[idx+1:]...)
		}
		e.MustCheck()
	}
	// R2: releasing everything still allocated returns to the initial state.
	for _, ext := range live {
		mustDeallocate(t, e, ext.Start, ext.Size)
	}
	e.MustCheck()
	free := freeItems(t, e)
	if len(free) != 1 || free[0] != (Extent{0, total}) {
		t.Fatalf("free after releasing everything = %v; want [{0 %d}]", free, total)
	}
}

func firstFreeStartOfAtLeast(e *Engine, size int64) (int64, bool) {
	for _, p := range e.FreeByAddr().Items() {
		if p.Value >= size {
			return p.Key, true
		}
	}
	return 0, false
}

func mustAllocate(t *testing.T, e *Engine, start, size int64) {
	t.Helper()
	if err := e.Allocate(start, size); err != nil {
		t.Fatalf("Allocate(%d, %d): %v", start, size, err)
	}
}

func mustDeallocate(t *testing.T, e *Engine, start, size int64) {
	t.Helper()
	if err := e.Deallocate(start, size); err != nil {
		t.Fatalf("Deallocate(%d, %d): %v", start, size, err)
	}
}
