// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package sink

import (
	"time"

	hec "github.com/aristanetworks/splunk-hec-go"

	"github.com/aristanetworks/allocsim/allocator"
)

// Splunk forwards an audit event per operation to a Splunk HTTP Event
// Collector cluster, in the style of cmd/ocsplunk's event construction.
type Splunk struct {
	cluster hec.Cluster
	index   string
	source  string
}

// NewSplunk opens a cluster connection over urls, authenticating with token.
func NewSplunk(urls []string, token, index string) *Splunk {
	return &Splunk{
		cluster: hec.NewCluster(urls, token),
		index:   index,
		source:  "allocsim",
	}
}

func (sp *Splunk) Publish(op allocator.Op, result int64, occ Occupancy) error {
	return publishBestEffort("splunk", func() error {
		event := &hec.Event{
			Index:      &sp.index,
			Source:     &sp.source,
			SourceType: &sp.source,
			Event: map[string]interface{}{
				"op_type":         op.Type.String(),
				"size":            op.Size,
				"addr":            op.Addr,
				"has_addr":        op.HasAddr,
				"result":          result,
				"free_bytes":      occ.FreeBytes,
				"allocated_bytes": occ.AllocatedBytes,
			},
		}
		event.SetTime(time.Now())
		return sp.cluster.WriteEvent(event)
	})
}

func (sp *Splunk) Close() error { return nil }
