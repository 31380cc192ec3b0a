// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package placement implements the first-fit, best-fit, and worst-fit
// strategies that pick a candidate free extent for a given size
// request.
package placement

import (
	"fmt"

	"github.com/aristanetworks/allocsim/extent"
)

// Strategy selects a start address for a size request, given the
// engine's current free-by-address/free-by-size state. It reports false
// if no free extent can satisfy size.
type Strategy interface {
	Select(e *extent.Engine, size int64) (start int64, ok bool)
	String() string
}

// FirstFit scans free extents in ascending start-address order and
// returns the first one large enough. Because the bucketed index's
// first-level hash is monotone in address, bucket order already equals
// address order.
type FirstFit struct{}

func (FirstFit) String() string { return "first-fit" }

func (FirstFit) Select(e *extent.Engine, size int64) (int64, bool) {
	for _, p := range e.FreeByAddr().Items() {
		if p.Value >= size {
			return p.Key, true
		}
	}
	return 0, false
}

// BestFit returns the start of the smallest free extent that is still at
// least size, with ties on size broken by the smallest candidate
// address.
type BestFit struct{}

func (BestFit) String() string { return "best-fit" }

func (BestFit) Select(e *extent.Engine, size int64) (int64, bool) {
	if starts, ok := e.FreeBySize().Query(size); ok && len(starts) > 0 {
		return starts[0], true
	}
	if _, starts, ok := e.FreeBySize().Successor(size); ok && len(starts) > 0 {
		return starts[0], true
	}
	return 0, false
}

// WorstFit always returns the start of the largest free extent, failing
// only if even that extent is too small: if worst-fit cannot satisfy a
// request, no strategy can.
type WorstFit struct{}

func (WorstFit) String() string { return "worst-fit" }

func (WorstFit) Select(e *extent.Engine, size int64) (int64, bool) {
	maxSize, starts, ok := e.FreeBySize().Max()
	if !ok || maxSize < size || len(starts) == 0 {
		return 0, false
	}
	return starts[0], true
}

// FromName resolves the configuration names used by config.Config and
// the CLI: FIRST_FIT, BEST_FIT, WORST_FIT.
func FromName(name string) (Strategy, error) {
	switch name {
	case "FIRST_FIT":
		return FirstFit{}, nil
	case "BEST_FIT":
		return BestFit{}, nil
	case "WORST_FIT":
		return WorstFit{}, nil
	default:
		return nil, fmt.Errorf("placement: unknown strategy %q", name)
	}
}
