// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package bucketindex

import (
	"golang.org/x/exp/constraints"

	"github.com/aristanetworks/allocsim/rbtree"
)

// MultiIndex is a bucketed ordered multimap over int64 keys (backs
// free-by-size, where several free extents can share a size).
type MultiIndex[V constraints.Ordered] struct {
	hash    HashFunc
	buckets []*rbtree.Multimap[V]
	bitmap  []bool
}

// NewMultiIndex creates a bucketed multimap index over a key universe of
// the given bit width.
func NewMultiIndex[V constraints.Ordered](bits uint, hash HashFunc) *MultiIndex[V] {
	capacity := capacityForBits(bits)
	return &MultiIndex[V]{
		hash:    hash,
		buckets: make([]*rbtree.Multimap[V], capacity),
		bitmap:  make([]bool, capacity),
	}
}

// Len returns the total number of distinct keys across all buckets.
func (idx *MultiIndex[V]) Len() int {
	n := 0
	for _, b := range idx.buckets {
		if b != nil {
			n += b.Len()
		}
	}
	return n
}

// Insert adds v to key's set, lazily constructing key's bucket.
func (idx *MultiIndex[V]) Insert(key int64, v V) {
	i := idx.hash(key)
	if idx.buckets[i] == nil {
		idx.buckets[i] = rbtree.NewMultimap[V]()
		idx.setBit(i, true)
	}
	idx.buckets[i].Insert(key, v)
}

// Query returns the sorted set of secondary values stored under key.
func (idx *MultiIndex[V]) Query(key int64) ([]V, bool) {
	i := idx.hash(key)
	if idx.buckets[i] == nil {
		return nil, false
	}
	return idx.buckets[i].Query(key)
}

// Delete removes a single secondary value from key's set (or the whole
// key if none is given), clearing the bucket once it becomes empty.
func (idx *MultiIndex[V]) Delete(key int64, v ...V) bool {
	i := idx.hash(key)
	if idx.buckets[i] == nil {
		return false
	}
	deleted := idx.buckets[i].Delete(key, v...)
	if deleted && idx.buckets[i].Len() == 0 {
		idx.buckets[i] = nil
		idx.setBit(i, false)
	}
	return deleted
}

// Successor returns the smallest key strictly greater than key.
func (idx *MultiIndex[V]) Successor(key int64) (int64, []V, bool) {
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
	return 0, nil, false
}

// Predecessor returns the largest key strictly less than key.
func (idx *MultiIndex[V]) Predecessor(key int64) (int64, []V, bool) {
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
	return 0, nil, false
}

// Max scans the bitmap backward for the highest-indexed non-empty bucket
// and returns its maximum key and sorted secondary set.
func (idx *MultiIndex[V]) Max() (int64, []V, bool) {
	for j := len(idx.buckets) - 1; j >= 0; j-- {
		if idx.buckets[j] != nil {
			k, v, _ := idx.buckets[j].Max()
			return k, v, true
		}
	}
	return 0, nil, false
}

// Items concatenates every bucket's contents in bucket order.
func (idx *MultiIndex[V]) Items() []rbtree.MultiPair[V] {
	items := make([]rbtree.MultiPair[V], 0, idx.Len())
	for _, b := range idx.buckets {
		if b != nil {
			items = append(items, b.Items()...)
		}
	}
	return items
}

// BucketSizes reports the distinct-key count of each bucket in order.
func (idx *MultiIndex[V]) BucketSizes() []int {
	sizes := make([]int, len(idx.buckets))
	for i, b := range idx.buckets {
		if b != nil {
			sizes[i] = b.Len()
		}
	}
	return sizes
}

func (idx *MultiIndex[V]) setBit(i int, v bool) {
	idx.bitmap[i] = v
}
