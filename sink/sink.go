// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package sink provides concrete telemetry consumers for a replayed
// trace: every sink is a best-effort observer of allocator operations,
// never a participant in the allocator's own state.
package sink

import (
	"github.com/aristanetworks/allocsim/allocator"
	"github.com/aristanetworks/allocsim/extent"
)

// Occupancy is a point-in-time snapshot of the extent engine's
// bookkeeping, taken after an operation completes. It is the payload
// every Sink publishes alongside the operation that produced it.
type Occupancy struct {
	FreeBytes       int64
	AllocatedBytes  int64
	FreeExtents     int
	AllocExtents    int
	FreeByAddrSizes []int
	FreeBySizeSizes []int
	AllocByAddrSizes []int
}

// Sink publishes one allocator operation, its result (the address
// Request chose, allocator.Fail on failure, or the release outcome
// encoded by the caller into result), and the occupancy snapshot taken
// right after it. Implementations must not block the allocator: a Sink
// reads a post-hoc snapshot and never touches the live indexes.
type Sink interface {
	Publish(op allocator.Op, result int64, occ Occupancy) error
	Close() error
}

// Multi fans a single Publish/Close out to every sink in sinks,
// continuing past individual failures so one broken sink cannot starve
// the others; it returns the first error encountered, if any.
type Multi []Sink

func (m Multi) Publish(op allocator.Op, result int64, occ Occupancy) error {
	var firstErr error
	for _, s := range m {
		if err := s.Publish(op, result, occ); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OccupancyOf takes a post-operation snapshot of e's three indexes.
// It is the only point where a sink reads engine state, and it does so
// read-only, after the operation that triggered the publish has
// already completed.
func OccupancyOf(e *extent.Engine) Occupancy {
	freeByAddr := e.FreeByAddr().Items()
	allocByAddr := e.AllocByAddr().Items()

	var occ Occupancy
	occ.FreeExtents = len(freeByAddr)
	occ.AllocExtents = len(allocByAddr)
	for _, p := range freeByAddr {
		occ.FreeBytes += p.Value
	}
	for _, p := range allocByAddr {
		occ.AllocatedBytes += p.Value
	}
	occ.FreeByAddrSizes = e.FreeByAddr().BucketSizes()
	occ.FreeBySizeSizes = e.FreeBySize().BucketSizes()
	occ.AllocByAddrSizes = e.AllocByAddr().BucketSizes()
	return occ
}
