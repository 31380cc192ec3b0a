// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package sink

import (
	"github.com/cenkalti/backoff/v4"

	alloglog "github.com/aristanetworks/allocsim/glog"
	"github.com/aristanetworks/allocsim/logger"
)

// Log is the logger used to report best-effort publish failures. It
// defaults to glog but can be swapped so tests don't depend on the
// global glog flags.
var Log logger.Logger = &alloglog.Glog{}

// publishBestEffort wraps a sink write with a bounded exponential
// retry; the final failure is still returned so sink.Multi can report
// it, but it never affects the allocator operation the Sink observed.
func publishBestEffort(name string, write func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	err := backoff.Retry(write, b)
	if err != nil {
		Log.Infof("sink %s: giving up after retries: %v", name, err)
	}
	return err
}
