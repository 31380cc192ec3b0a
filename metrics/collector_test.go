// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aristanetworks/allocsim/extent"
)

func TestCollectorReportsRegisteredEngines(t *testing.T) {
	c := NewCollector()
	e := extent.NewEngine(1000)
	if err := e.Allocate(0, 200); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	c.Register("trace-a", e)

	if n := testutil.CollectAndCount(c); n == 0 {
		t.Fatal("Collect produced no metrics for a registered engine")
	}
}

func TestCollectorIgnoresUnregisteredEngines(t *testing.T) {
	c := NewCollector()
	e := extent.NewEngine(1000)
	c.Register("trace-a", e)
	c.Unregister("trace-a")

	if n := testutil.CollectAndCount(c); n != 0 {
		t.Fatalf("Collect produced %d metrics after Unregister; want 0", n)
	}
}
