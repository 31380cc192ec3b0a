// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package allocator implements the public facade over the extent
// engine and its placement strategy: Request, Release, and the
// validation both require.
package allocator

import (
	"github.com/aristanetworks/allocsim/extent"
	"github.com/aristanetworks/allocsim/placement"
)

// Fail is the sentinel at this boundary: a request that cannot be
// satisfied returns Fail, never a valid address. Interior components
// (extent, bucketindex, rbtree) instead use an explicit (value, bool)
// pair and never produce this sentinel themselves.
const Fail int64 = -1

// Allocator is a single-threaded, synchronous facade: it carries no
// lock of its own, so concurrent callers must serialize access to one
// Allocator externally.
type Allocator struct {
	engine   *extent.Engine
	strategy placement.Strategy
	total    int64
}

// New returns an Allocator over a region of the given capacity, using
// strategy to pick a block for size-only requests.
func New(total int64, strategy placement.Strategy) *Allocator {
	return &Allocator{
		engine:   extent.NewEngine(total),
		strategy: strategy,
		total:    total,
	}
}

// Engine exposes the underlying extent engine, e.g. for metrics
// collection or debug-mode invariant checks; callers must not mutate it
// directly.
func (a *Allocator) Engine() *extent.Engine { return a.engine }

// Strategy returns the configured placement strategy.
func (a *Allocator) Strategy() placement.Strategy { return a.strategy }

// Request serves a REQUEST operation: if op carries an explicit address
// it allocates there or fails; otherwise it asks the configured strategy
// for a candidate block. It returns the chosen start address, or Fail.
// A failing request leaves the engine's indexes unchanged.
func (a *Allocator) Request(op Op) int64 {
	if !a.IsValidOp(op) {
		return Fail
	}
	if op.HasAddr {
		if err := a.engine.Allocate(op.Addr, op.Size); err != nil {
			return Fail
		}
		return op.Addr
	}
	start, ok := a.strategy.Select(a.engine, op.Size)
	if !ok {
		return Fail
	}
	if err := a.engine.Allocate(start, op.Size); err != nil {
		return Fail
	}
	return start
}

// Release serves a RELEASE operation, returning whether the range was
// contained in an allocated extent and successfully freed.
func (a *Allocator) Release(op Op) bool {
	if !a.IsValidOp(op) {
		return false
	}
	return a.engine.Deallocate(op.Addr, op.Size) == nil
}

// IsValidOp runs the bounds and containment checks an operation must
// pass before any mutation is attempted.
func (a *Allocator) IsValidOp(op Op) bool {
	switch op.Type {
	case OpRequest:
		if op.Size < 0 || op.Size > a.total {
			return false
		}
		if op.HasAddr {
			if op.Addr < 0 || op.Addr > a.total {
				return false
			}
			fs, fsz, ok := a.engine.FreeExtentContaining(op.Addr)
			if !ok {
				return false
			}
			remaining := (fs + fsz) - op.Addr
			return remaining >= op.Size
		}
		maxFree, _, ok := a.engine.FreeBySize().Max()
		return ok && maxFree >= op.Size
	case OpRelease:
		return op.Size >= 0 && op.Size <= a.total && op.Addr >= 0 && op.Addr <= a.total
	default:
		return false
	}
}
