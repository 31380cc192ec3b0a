// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package extent implements the extent bookkeeping engine: the three
// mutually-consistent ordered indexes over free and allocated memory
// extents, and the split/merge primitives that keep them so.
package extent

import (
	"fmt"
	"math/bits"

	"github.com/aristanetworks/allocsim/bucketindex"
)

// Extent is a contiguous address range [Start, Start+Size).
type Extent struct {
	Start int64
	Size  int64
}

// Engine owns the free-by-address, free-by-size, and allocated-by-address
// indexes for a single fixed-capacity region and keeps them mutually
// consistent.
type Engine struct {
	total int64
	bits  uint

	freeByAddr  *bucketindex.Index[int64]
	freeBySize  *bucketindex.MultiIndex[int64]
	allocByAddr *bucketindex.Index[int64]

	// CoalesceAllocated merges abutting allocated extents on every
	// allocation when true (the default). Set it false to keep each
	// allocation as its own entry in allocated-by-address.
	CoalesceAllocated bool
}

// NewEngine returns an Engine over [0, total), wholly free.
func NewEngine(total int64) *Engine {
	b := bitsFor(total)
	e := &Engine{
		total:             total,
		bits:              b,
		freeByAddr:        bucketindex.NewIndex[int64](b, bucketindex.LinearHash(b)),
		freeBySize:        bucketindex.NewMultiIndex[int64](b, bucketindex.LogHash(b)),
		allocByAddr:       bucketindex.NewIndex[int64](b, bucketindex.LinearHash(b)),
		CoalesceAllocated: true,
	}
	if total > 0 {
		e.freeByAddr.Insert(0, total)
		e.freeBySize.Insert(total, 0)
	}
	return e
}

// bitsFor returns ceil(log2(total)), the bit width parameterizing the
// bucketed indexes.
func bitsFor(total int64) uint {
	if total <= 1 {
		return 1
	}
	return uint(bits.Len64(uint64(total - 1)))
}

// Total returns the region's fixed capacity.
func (e *Engine) Total() int64 { return e.total }

// FreeByAddr exposes the free-by-address index for read-only queries by
// package placement.
func (e *Engine) FreeByAddr() *bucketindex.Index[int64] { return e.freeByAddr }

// FreeBySize exposes the free-by-size index for read-only queries by
// package placement.
func (e *Engine) FreeBySize() *bucketindex.MultiIndex[int64] { return e.freeBySize }

// AllocByAddr exposes the allocated-by-address index.
func (e *Engine) AllocByAddr() *bucketindex.Index[int64] { return e.allocByAddr }

// FreeExtentContaining returns the free extent that covers addr, if any.
// Used by the allocator facade to validate an explicit-address request
// without duplicating the lookup Allocate itself performs.
func (e *Engine) FreeExtentContaining(addr int64) (start, size int64, ok bool) {
	fs, fsz, ok := e.findFree(addr)
	if !ok || fs > addr || addr >= fs+fsz {
		return 0, 0, false
	}
	return fs, fsz, true
}

func (e *Engine) findFree(start int64) (fs, fsz int64, ok bool) {
	if sz, ok := e.freeByAddr.Query(start); ok {
		return start, sz, true
	}
	return e.freeByAddr.Predecessor(start)
}

func (e *Engine) findAlloc(start int64) (as, asz int64, ok bool) {
	if sz, ok := e.allocByAddr.Query(start); ok {
		return start, sz, true
	}
	return e.allocByAddr.Predecessor(start)
}

// Allocate carves [start, start+size) out of the free extent that
// contains it, splitting off leading/trailing remnants as needed, and
// records the new allocation. It fails, leaving all three indexes
// unchanged, if no free extent covers the requested range.
func (e *Engine) Allocate(start, size int64) error {
	fs, fsz, ok := e.findFree(start)
	if !ok || fs > start || start+size > fs+fsz {
		return fmt.Errorf("extent: no free block covers [%d, %d)", start, start+size)
	}

	e.allocByAddr.Insert(start, size)
	e.freeByAddr.Delete(fs)
	e.freeBySize.Delete(fsz, fs)
	if start > fs {
		e.freeByAddr.Insert(fs, start-fs)
		e.freeBySize.Insert(start-fs, fs)
	}
	if trailing := (fs + fsz) - (start + size); trailing > 0 {
		e.freeByAddr.Insert(start+size, trailing)
		e.freeBySize.Insert(trailing, start+size)
	}
	if e.CoalesceAllocated {
		e.mergeAllocated(start, size)
	}
	return nil
}

// Deallocate frees [start, start+size), which must lie entirely within
// a single allocated extent (possibly a smaller sub-range of one
// that Allocate coalesced). It coalesces the freed range with any
// abutting free neighbors.
func (e *Engine) Deallocate(start, size int64) error {
	as, asz, ok := e.findAlloc(start)
	if !ok || start < as || start >= as+asz || start+size > as+asz {
		return fmt.Errorf("extent: [%d, %d) is not contained in an allocated block", start, start+size)
	}

	e.allocByAddr.Delete(as)
	if start > as {
		e.allocByAddr.Insert(as, start-as)
	}
	if trailing := (as + asz) - (start + size); trailing > 0 {
		e.allocByAddr.Insert(start+size, trailing)
	}

	e.freeByAddr.Insert(start, size)
	e.freeBySize.Insert(size, start)
	e.mergeFree(start, size)
	return nil
}

// mergeFree coalesces the just-inserted free extent [start, start+size)
// with an abutting predecessor and/or successor in freeByAddr, preserving
// I2 (no two free extents may remain adjacent).
func (e *Engine) mergeFree(start, size int64) {
	end := start + size
	curStart, curSize := start, size

	if prevStart, prevSize, ok := e.freeByAddr.Predecessor(curStart); ok && prevStart+prevSize == curStart {
		e.freeByAddr.Delete(prevStart)
		e.freeBySize.Delete(prevSize, prevStart)
		e.freeByAddr.Delete(curStart)
		e.freeBySize.Delete(curSize, curStart)
		curStart, curSize = prevStart, end-prevStart
		e.freeByAddr.Insert(curStart, curSize)
		e.freeBySize.Insert(curSize, curStart)
	}

	if nextStart, nextSize, ok := e.freeByAddr.Successor(curStart); ok && end == nextStart {
		e.freeByAddr.Delete(nextStart)
		e.freeBySize.Delete(nextSize, nextStart)
		e.freeByAddr.Delete(curStart)
		e.freeBySize.Delete(curSize, curStart)
		curSize = (nextStart + nextSize) - curStart
		e.freeByAddr.Insert(curStart, curSize)
		e.freeBySize.Insert(curSize, curStart)
	}
}

// mergeAllocated coalesces the just-inserted allocated extent
// [start, start+size) with an abutting predecessor and/or successor in
// allocByAddr, unifying contiguous allocations into one bookkeeping
// entry; Deallocate compensates by accepting and splitting any
// sub-range of an allocated extent, not just one matching an original
// Allocate call.
func (e *Engine) mergeAllocated(start, size int64) {
	end := start + size
	curStart, curSize := start, size

	if prevStart, prevSize, ok := e.allocByAddr.Predecessor(curStart); ok && prevStart+prevSize == curStart {
		e.allocByAddr.Delete(prevStart)
		e.allocByAddr.Delete(curStart)
		curStart, curSize = prevStart, end-prevStart
		e.allocByAddr.Insert(curStart, curSize)
	}

	if nextStart, nextSize, ok := e.allocByAddr.Successor(curStart); ok && end == nextStart {
		e.allocByAddr.Delete(nextStart)
		e.allocByAddr.Delete(curStart)
		curSize = (nextStart + nextSize) - curStart
		e.allocByAddr.Insert(curStart, curSize)
	}
}
