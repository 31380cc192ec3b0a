// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package sink

import (
	"fmt"
	"hash/fnv"

	redis "gopkg.in/redis.v4"

	"github.com/aristanetworks/allocsim/allocator"
	"github.com/aristanetworks/allocsim/hashmap"
)

// Redis mirrors the latest occupancy snapshot into a handful of Redis
// gauges for dashboards (the Go counterpart to cmd/ocredis's publish-
// on-update pattern), deduplicating no-op writes with a local hashmap
// cache so unchanged gauges are not re-sent on every operation.
type Redis struct {
	client *redis.Client
	keyPrefix string
	seen   *hashmap.Hashmap[string, int64]
}

func stringHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// NewRedis connects to a single Redis server and mirrors gauges under keyPrefix.
func NewRedis(addr, password, keyPrefix string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Redis{
		client:    client,
		keyPrefix: keyPrefix,
		seen: hashmap.New[string, int64](0, stringHash,
			func(a, b string) bool { return a == b }),
	}
}

func (r *Redis) Publish(_ allocator.Op, _ int64, occ Occupancy) error {
	return publishBestEffort("redis", func() error {
		gauges := map[string]int64{
			"free_bytes":      occ.FreeBytes,
			"allocated_bytes": occ.AllocatedBytes,
			"free_extents":    int64(occ.FreeExtents),
			"alloc_extents":   int64(occ.AllocExtents),
		}
		for name, value := range gauges {
			key := r.keyPrefix + ":" + name
			if prev, ok := r.seen.Get(key); ok && prev == value {
				continue
			}
			if err := r.client.Set(key, fmt.Sprintf("%d", value), 0).Err(); err != nil {
				return err
			}
			r.seen.Set(key, value)
		}
		return nil
	})
}

func (r *Redis) Close() error {
	return r.client.Close()
}
