// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package bucketindex implements a two-level bucketed ordered index:
// a fixed array of buckets, each lazily holding an rbtree.Map or
// rbtree.Multimap, dispatched by a monotone
// first-level hash so Successor/Predecessor/Max can skip empty buckets
// via a bitmap instead of scanning every bucket's tree.
package bucketindex

import "github.com/aristanetworks/allocsim/rbtree"

// Index is a bucketed ordered map over int64 keys (backs free-by-address
// and allocated-by-address).
type Index[V any] struct {
	hash     HashFunc
	buckets  []*rbtree.Map[V]
	bitmap   []bool
	nonEmpty int
}

// NewIndex creates a bucketed index over a key universe of the given bit
// width, using hash to assign keys to buckets.
func NewIndex[V any](bits uint, hash HashFunc) *Index[V] {
	capacity := capacityForBits(bits)
	return &Index[V]{
		hash:    hash,
		buckets: make([]*rbtree.Map[V], capacity),
		bitmap:  make([]bool, capacity),
	}
}

// Len returns the total number of keys across all buckets.
func (idx *Index[V]) Len() int {
	n := 0
	for _, b := range idx.buckets {
		if b != nil {
			n += b.Len()
		}
	}
	return n
}

// Insert locates key's bucket (lazily constructing it), and inserts.
func (idx *Index[V]) Insert(key int64, value V) {
	i := idx.hash(key)
	if idx.buckets[i] == nil {
		idx.buckets[i] = rbtree.NewMap[V]()
		idx.setBit(i, true)
	}
	idx.buckets[i].Insert(key, value)
}

// Query looks up key in its bucket.
func (idx *Index[V]) Query(key int64) (V, bool) {
	i := idx.hash(key)
	if idx.buckets[i] == nil {
		var zero V
		return zero, false
	}
	return idx.buckets[i].Query(key)
}

// Delete removes key, clearing the bucket and its bitmap bit if that was
// the bucket's last entry.
func (idx *Index[V]) Delete(key int64) bool {
	i := idx.hash(key)
	if idx.buckets[i] == nil {
		return false
	}
	deleted := idx.buckets[i].Delete(key)
	if deleted && idx.buckets[i].Len() == 0 {
		idx.buckets[i] = nil
		idx.setBit(i, false)
	}
	return deleted
}

// Successor returns the smallest key strictly greater than key, trying
// key's own bucket first and otherwise scanning forward across the
// bitmap to the next non-empty bucket.
func (idx *Index[V]) Successor(key int64) (int64, V, bool) {
	i := idx.hash(key)
	if idx.buckets[i] != nil {
		if k, v, ok := idx.buckets[i].Successor(key); ok {
			return k, v, true
		}
	}
	for j := i + 1; j < len(idx.buckets); j++ {
		if idx.buckets[j] != nil {
			k, v, _ := idx.buckets[j].Min()
			return k, v, true
		}
	}
	var zero V
	return 0, zero, false
}

// Predecessor returns the largest key strictly less than key, symmetric
// to Successor.
func (idx *Index[V]) Predecessor(key int64) (int64, V, bool) {
	i := idx.hash(key)
	if idx.buckets[i] != nil {
		if k, v, ok := idx.buckets[i].Predecessor(key); ok {
			return k, v, true
		}
	}
	for j := i - 1; j >= 0; j-- {
		if idx.buckets[j] != nil {
			k, v, _ := idx.buckets[j].Max()
			return k, v, true
		}
	}
	var zero V
	return 0, zero, false
}

// Max scans the bitmap backward for the highest-indexed non-empty
// bucket and returns its maximum key.
func (idx *Index[V]) Max() (int64, V, bool) {
	for j := len(idx.buckets) - 1; j >= 0; j-- {
		if idx.buckets[j] != nil {
			k, v, _ := idx.buckets[j].Max()
			return k, v, true
		}
	}
	var zero V
	return 0, zero, false
}

// Min scans the bitmap forward for the lowest-indexed non-empty bucket
// and returns its minimum key.
func (idx *Index[V]) Min() (int64, V, bool) {
	for j := 0; j < len(idx.buckets); j++ {
		if idx.buckets[j] != nil {
			k, v, _ := idx.buckets[j].Min()
			return k, v, true
		}
	}
	var zero V
	return 0, zero, false
}

// Items concatenates every bucket's contents in bucket order (and hence
// ascending key order, since the first-level hash is monotone).
func (idx *Index[V]) Items() []rbtree.Pair[V] {
	items := make([]rbtree.Pair[V], 0, idx.Len())
	for _, b := range idx.buckets {
		if b != nil {
			items = append(items, b.Items()...)
		}
	}
	return items
}

// BucketSizes reports the key count of each bucket in order, for
// occupancy instrumentation (metrics.Collector).
func (idx *Index[V]) BucketSizes() []int {
	sizes := make([]int, len(idx.buckets))
	for i, b := range idx.buckets {
		if b != nil {
			sizes[i] = b.Len()
		}
	}
	return sizes
}

func (idx *Index[V]) setBit(i int, v bool) {
	if idx.bitmap[i] == v {
		return
	}
	idx.bitmap[i] = v
	if v {
		idx.nonEmpty++
	} else {
		idx.nonEmpty--
	}
}
