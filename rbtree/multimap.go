// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package rbtree

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// MultiPair is a single (key, values) entry, returned by Items in
// ascending key order with values sorted ascending for a deterministic
// tie-break on repeated keys.
type MultiPair[V constraints.Ordered] struct {
	Key    int64
	Values []V
}

// Multimap has the same ordered contract as Map, but each key carries
// a set of secondary values (used for free-by-size, where several free
// extents can share a size).
type Multimap[V constraints.Ordered] struct {
	t *tree[map[V]struct{}]
}

// NewMultimap returns an empty Multimap.
func NewMultimap[V constraints.Ordered]() *Multimap[V] {
	return &Multimap[V]{t: newTree[map[V]struct{}]()}
}

// Len returns the number of distinct keys (not the total secondary count).
func (m *Multimap[V]) Len() int {
	return m.t.Len()
}

// Insert adds v to the set stored under key, creating the key if absent.
// Duplicate values are suppressed.
func (m *Multimap[V]) Insert(key int64, v V) {
	m.t.upsert(key, map[V]struct{}{v: {}}, func(old map[V]struct{}) map[V]struct{} {
		old[v] = struct{}{}
		return old
	})
}

// Query returns the sorted set of secondary values stored under key.
// An absent key returns (nil, false); a present key never returns an
// empty slice, since empty sets are deleted rather than kept around.
func (m *Multimap[V]) Query(key int64) ([]V, bool) {
	n := m.t.find(key)
	if n == nil {
		return nil, false
	}
	return sortedValues(n.value), true
}

// Delete removes a single secondary value from key's set, dropping the
// key entirely once its set is empty. If no secondary values are given,
// the whole key is removed regardless of its current set.
func (m *Multimap[V]) Delete(key int64, v ...V) bool {
	n := m.t.find(key)
	if n == nil {
		return false
	}
	if len(v) == 0 {
		m.t.delete(n)
		return true
	}
	delete(n.value, v[0])
	if len(n.value) == 0 {
		m.t.delete(n)
	}
	return true
}

// Max returns the largest key and its sorted secondary set.
func (m *Multimap[V]) Max() (int64, []V, bool) {
	n := m.t.maxNode()
	if n == nil {
		return 0, nil, false
	}
	return n.key, sortedValues(n.value), true
}

// Min returns the smallest key and its sorted secondary set.
func (m *Multimap[V]) Min() (int64, []V, bool) {
	n := m.t.minNode()
	if n == nil {
		return 0, nil, false
	}
	return n.key, sortedValues(n.value), true
}

// Successor returns the smallest key strictly greater than key.
func (m *Multimap[V]) Successor(key int64) (int64, []V, bool) {
	n := m.t.successor(key)
	if n == nil {
		return 0, nil, false
	}
	return n.key, sortedValues(n.value), true
}

// Predecessor returns the largest key strictly less than key.
func (m *Multimap[V]) Predecessor(key int64) (int64, []V, bool) {
	n := m.t.predecessor(key)
	if n == nil {
		return 0, nil, false
	}
	return n.key, sortedValues(n.value), true
}

// Items returns all entries in ascending key order, each with its
// secondary values sorted ascending.
func (m *Multimap[V]) Items() []MultiPair[V] {
	items := make([]MultiPair[V], 0, m.t.Len())
	m.t.inorder(func(n *node[map[V]struct{}]) {
		items = append(items, MultiPair[V]{Key: n.key, Values: sortedValues(n.value)})
	})
	return items
}

func sortedValues[V constraints.Ordered](set map[V]struct{}) []V {
	values := make([]V, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}
