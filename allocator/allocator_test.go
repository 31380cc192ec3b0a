// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package allocator

import (
	"testing"

	"github.com/aristanetworks/allocsim/placement"
)

const total = 1024

func request(size int64) Op     { return Op{Type: OpRequest, Size: size} }
func requestAt(size, addr int64) Op {
	return Op{Type: OpRequest, Size: size, Addr: addr, HasAddr: true}
}
func release(addr, size int64) Op { return Op{Type: OpRelease, Addr: addr, Size: size} }

func TestScenarioBestFitPicksTight(t *testing.T) {
	a := New(total, placement.BestFit{})
	if start := a.Request(request(100)); start != 0 {
		t.Fatalf("Request(100) = %d; want 0", start)
	}
	if start := a.Request(request(50)); start != 100 {
		t.Fatalf("Request(50) = %d; want 100", start)
	}
	if start := a.Request(request(200)); start != 150 {
		t.Fatalf("Request(200) = %d; want 150", start)
	}
	if !a.Release(release(100, 50)) {
		t.Fatal("Release(100, 50) should succeed")
	}
	if !a.Release(release(0, 100)) {
		t.Fatal("Release(0, 100) should succeed")
	}
	// Free is now {(0,150), (350,674)}; best fit for 50 picks the 150 block.
	if start := a.Request(request(50)); start != 0 {
		t.Fatalf("Request(50) = %d; want 0 (the 150-byte block)", start)
	}
	if start := a.Request(request(700)); start != Fail {
		t.Fatalf("Request(700) = %d; want Fail, largest free block is 674", start)
	}
}

func TestScenarioWorstFitPicksLargest(t *testing.T) {
	a := New(total, placement.WorstFit{})
	// Build the free layout {(0,100), (200,300), (600,424)} by allocating
	// everything else directly against the engine.
	mustEngineAllocate(t, a, 100, 100)  // [100,200) allocated
	mustEngineAllocate(t, a, 500, 100)  // [500,600) allocated
	if start := a.Request(request(50)); start != 600 {
		t.Fatalf("Request(50) = %d; want 600", start)
	}
}

func mustEngineAllocate(t *testing.T, a *Allocator, start, size int64) {
	t.Helper()
	if err := a.Engine().Allocate(start, size); err != nil {
		t.Fatalf("Engine().Allocate(%d, %d): %v", start, size, err)
	}
}

func TestScenarioExplicitAddress(t *testing.T) {
	a := New(total, placement.FirstFit{})
	if start := a.Request(requestAt(100, 500)); start != 500 {
		t.Fatalf("Request(size=100, addr=500) = %d; want 500", start)
	}
}

func TestScenarioExplicitAddressRejection(t *testing.T) {
	a := New(total, placement.FirstFit{})
	if start := a.Request(requestAt(100, 0)); start != 0 {
		t.Fatalf("Request(size=100, addr=0) = %d; want 0", start)
	}
	if start := a.Request(requestAt(50, 25)); start != Fail {
		t.Fatalf("Request(size=50, addr=25) = %d; want Fail, 25 is allocated", start)
	}
}

func TestReleaseOfUnallocatedFails(t *testing.T) {
	a := New(total, placement.FirstFit{})
	if a.Release(release(0, 100)) {
		t.Fatal("releasing never-allocated memory should fail")
	}
	a.Request(requestAt(100, 0))
	if a.Release(release(50, 100)) {
		t.Fatal("releasing past the end of the allocated block should fail")
	}
}

func TestRoundTripR1(t *testing.T) {
	a := New(total, placement.FirstFit{})
	before := a.Engine().FreeByAddr().Items()
	start := a.Request(request(64))
	if start == Fail {
		t.Fatal("Request(64) should succeed on a fresh allocator")
	}
	if !a.Release(release(start, 64)) {
		t.Fatal("Release should succeed")
	}
	after := a.Engine().FreeByAddr().Items()
	if len(before) != len(after) || before[0] != after[0] {
		t.Fatalf("round trip changed free state: before=%v after=%v", before, after)
	}
}

func TestValidationRejectsOutOfRangeSize(t *testing.T) {
	a := New(total, placement.FirstFit{})
	if start := a.Request(request(total + 1)); start != Fail {
		t.Fatalf("Request(total+1) = %d; want Fail", start)
	}
	if start := a.Request(request(-1)); start != Fail {
		t.Fatalf("Request(-1) = %d; want Fail", start)
	}
}

