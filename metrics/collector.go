// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package metrics exports the allocator's extent bookkeeping as
// Prometheus gauges using a collect-on-demand collector: rather than
// caching a value per update, Collect re-reads the engine's indexes
// every scrape, since a scrape is rare compared to allocator
// operations and the snapshot is cheap.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aristanetworks/allocsim/extent"
)

var (
	freeBytesDesc = prometheus.NewDesc(
		"allocsim_free_bytes", "Total bytes currently free.", []string{"allocator"}, nil)
	allocatedBytesDesc = prometheus.NewDesc(
		"allocsim_allocated_bytes", "Total bytes currently allocated.", []string{"allocator"}, nil)
	freeExtentsDesc = prometheus.NewDesc(
		"allocsim_free_extents", "Number of distinct free extents.", []string{"allocator"}, nil)
	bucketOccupancyDesc = prometheus.NewDesc(
		"allocsim_bucket_occupancy", "Entry count of each index bucket.",
		[]string{"allocator", "index", "bucket"}, nil)
)

// Collector implements prometheus.Collector over a named set of extent
// engines, one per concurrently-processed trace, each with its own
// Allocator.
type Collector struct {
	mu      sync.Mutex
	engines map[string]*extent.Engine
}

// NewCollector returns an empty Collector; engines are registered with
// Register as trace processing starts and removed with Unregister when
// it finishes, so a scrape never reads a closed-out engine.
func NewCollector() *Collector {
	return &Collector{engines: make(map[string]*extent.Engine)}
}

// Register associates name (typically the trace file path) with e for
// the duration of its processing.
func (c *Collector) Register(name string, e *extent.Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engines[name] = e
}

// Unregister removes name, e.g. once its trace has finished processing.
func (c *Collector) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.engines, name)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- freeBytesDesc
	ch <- allocatedBytesDesc
	ch <- freeExtentsDesc
	ch <- bucketOccupancyDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, e := range c.engines {
		var freeBytes, allocBytes int64
		for _, p := range e.FreeByAddr().Items() {
			freeBytes += p.Value
		}
		for _, p := range e.AllocByAddr().Items() {
			allocBytes += p.Value
		}
		ch <- prometheus.MustNewConstMetric(freeBytesDesc, prometheus.GaugeValue,
			float64(freeBytes), name)
		ch <- prometheus.MustNewConstMetric(allocatedBytesDesc, prometheus.GaugeValue,
			float64(allocBytes), name)
		ch <- prometheus.MustNewConstMetric(freeExtentsDesc, prometheus.GaugeValue,
			float64(len(e.FreeByAddr().Items())), name)

		c.collectBuckets(ch, name, "free_by_addr", e.FreeByAddr().BucketSizes())
		c.collectBuckets(ch, name, "free_by_size", e.FreeBySize().BucketSizes())
		c.collectBuckets(ch, name, "alloc_by_addr", e.AllocByAddr().BucketSizes())
	}
}

func (c *Collector) collectBuckets(ch chan<- prometheus.Metric, name, index string, sizes []int) {
	for i, sz := range sizes {
		ch <- prometheus.MustNewConstMetric(bucketOccupancyDesc, prometheus.GaugeValue,
			float64(sz), name, index, strconv.Itoa(i))
	}
}
