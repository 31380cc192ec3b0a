// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package trace

import (
	"strings"
	"testing"

	"github.com/aristanetworks/allocsim/allocator"
)

func TestReadCSV(t *testing.T) {
	const input = `
1, 100,

0,50, 100

1,200,500
`
	ops, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := []allocator.Op{
		{Type: allocator.OpRequest, Size: 100},
		{Type: allocator.OpRelease, Size: 50, Addr: 100, HasAddr: true},
		{Type: allocator.OpRequest, Size: 200, Addr: 500, HasAddr: true},
	}
	if len(ops) != len(want) {
		t.Fatalf("ReadCSV returned %d ops; want %d", len(ops), len(want))
	}
	for i, op := range ops {
		if op != want[i] {
			t.Errorf("op %d = %+v; want %+v", i, op, want[i])
		}
	}
}

func TestReadCSVRejectsMalformedLine(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("1,100")); err == nil {
		t.Fatal("ReadCSV should reject a line missing the addr field")
	}
	if _, err := ReadCSV(strings.NewReader("1,notanumber,")); err == nil {
		t.Fatal("ReadCSV should reject a non-numeric size")
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	ops := []allocator.Op{
		{Type: allocator.OpRequest, Size: 100},
		{Type: allocator.OpRelease, Size: 50, Addr: 100, HasAddr: true},
	}
	var sb strings.Builder
	if err := WriteCSV(&sb, ops); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	got, err := ReadCSV(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("ReadCSV(WriteCSV(ops)): %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("round trip returned %d ops; want %d", len(got), len(ops))
	}
	for i, op := range got {
		if op != ops[i] {
			t.Errorf("op %d = %+v; want %+v", i, op, ops[i])
		}
	}
}
