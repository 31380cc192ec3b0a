// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package sink

import (
	"fmt"
	"time"

	influxdb "github.com/influxdata/influxdb1-client/v2"

	"github.com/aristanetworks/allocsim/allocator"
)

// Influx writes an occupancy point per operation, replacing the
// original implementation's matplotlib surface plot of bucket sizes
// over time (original_source/Program/Test.py) with a queryable time
// series, in the style of influxlib.InfluxDBConnection.WritePoint.
type Influx struct {
	client   influxdb.Client
	database string
}

// NewInflux connects to an InfluxDB HTTP endpoint and writes into database.
func NewInflux(addr, database string) (*Influx, error) {
	c, err := influxdb.NewHTTPClient(influxdb.HTTPConfig{
		Addr:    addr,
		Timeout: time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: influx: %w", err)
	}
	return &Influx{client: c, database: database}, nil
}

func (in *Influx) Publish(op allocator.Op, result int64, occ Occupancy) error {
	return publishBestEffort("influx", func() error {
		bp, err := influxdb.NewBatchPoints(influxdb.BatchPointsConfig{
			Database:  in.database,
			Precision: "ns",
		})
		if err != nil {
			return err
		}

		tags := map[string]string{"op": op.Type.String()}
		fields := map[string]interface{}{
			"size":            op.Size,
			"addr":            op.Addr,
			"result":          result,
			"free_bytes":      occ.FreeBytes,
			"allocated_bytes": occ.AllocatedBytes,
			"free_extents":    occ.FreeExtents,
			"alloc_extents":   occ.AllocExtents,
		}
		pt, err := influxdb.NewPoint("allocsim_occupancy", tags, fields, time.Now())
		if err != nil {
			return err
		}
		bp.AddPoint(pt)
		return in.client.Write(bp)
	})
}

func (in *Influx) Close() error {
	return in.client.Close()
}
