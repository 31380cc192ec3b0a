// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package rbtree

import "testing"

func TestMultimapInsertQueryDelete(t *testing.T) {
	m := NewMultimap[int64]()
	m.Insert(100, 5)
	m.Insert(100, 0)
	m.Insert(100, 5) // duplicate suppressed

	values, ok := m.Query(100)
	if !ok {
		t.Fatal("Query(100) should hit")
	}
	if len(values) != 2 || values[0] != 0 || values[1] != 5 {
		t.Fatalf("Query(100) = %v; want [0 5]", values)
	}

	if !m.Delete(100, 0) {
		t.Fatal("Delete(100, 0) should report true")
	}
	values, _ = m.Query(100)
	if len(values) != 1 || values[0] != 5 {
		t.Fatalf("Query(100) after partial delete = %v; want [5]", values)
	}

	if !m.Delete(100, 5) {
		t.Fatal("Delete(100, 5) should report true")
	}
	if _, ok := m.Query(100); ok {
		t.Fatal("key should be gone once its set is empty")
	}
}

func TestMultimapDeleteWholeKey(t *testing.T) {
	m := NewMultimap[int64]()
	m.Insert(50, 1)
	m.Insert(50, 2)
	m.Insert(50, 3)
	if !m.Delete(50) {
		t.Fatal("Delete(50) should report true")
	}
	if _, ok := m.Query(50); ok {
		t.Fatal("key should be gone")
	}
}

func TestMultimapMaxMinTieBreak(t *testing.T) {
	m := NewMultimap[int64]()
	m.Insert(200, 30)
	m.Insert(200, 10)
	m.Insert(200, 20)

	key, values, ok := m.Max()
	if !ok || key != 200 {
		t.Fatalf("Max() key = %d, %v; want 200, true", key, ok)
	}
	if values[0] != 10 {
		t.Fatalf("Max() tie-break = %v; want smallest-first [10 20 30]", values)
	}

	m.Insert(50, 5)
	key, values, ok = m.Min()
	if !ok || key != 50 || values[0] != 5 {
		t.Fatalf("Min() = %d, %v, %v; want 50 [5] true", key, values, ok)
	}
}

func TestMultimapSuccessorPredecessor(t *testing.T) {
	m := NewMultimap[int64]()
	for _, k := range []int64{10, 20, 30} {
		m.Insert(k, k*10)
	}
	if k, _, ok := m.Successor(15); !ok || k != 20 {
		t.Fatalf("Successor(15) = %d, %v; want 20, true", k, ok)
	}
	if k, _, ok := m.Predecessor(25); !ok || k != 20 {
		t.Fatalf("Predecessor(25) = %d, %v; want 20, true", k, ok)
	}
	if _, _, ok := m.Successor(30); ok {
		t.Fatal("Successor(30) should miss, 30 has no larger key")
	}
}
