// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// The allocsim command replays one or more trace files against the
// extent allocator, publishing each operation's outcome to the
// configured sinks and exposing live occupancy metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aristanetworks/glog"

	"github.com/aristanetworks/allocsim/allocator"
	"github.com/aristanetworks/allocsim/config"
	"github.com/aristanetworks/allocsim/kafka"
	"github.com/aristanetworks/allocsim/metrics"
	"github.com/aristanetworks/allocsim/monitor"
	"github.com/aristanetworks/allocsim/placement"
	"github.com/aristanetworks/allocsim/sink"
	"github.com/aristanetworks/allocsim/sync/semaphore"
	"github.com/aristanetworks/allocsim/trace"
)

var (
	configFlag   = flag.String("config", "", "Path to the allocsim YAML config file")
	totalMemory  = flag.Int64("total-memory", 0, "Override the config file's total-memory")
	strategyFlag = flag.String("strategy", "", "Override the config file's strategy")
	metricsAddr  = flag.String("metrics-addr", "", "Override the config file's metrics-addr")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configFlag != "" {
		var err error
		cfg, err = config.Load(*configFlag)
		if err != nil {
			glog.Fatal(err)
		}
	}
	if *totalMemory != 0 {
		cfg.TotalMemory = *totalMemory
	}
	if *strategyFlag != "" {
		cfg.Strategy = *strategyFlag
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	if len(cfg.TraceFiles) == 0 && cfg.WatchDir == "" && cfg.KafkaTraceTopic == "" {
		fmt.Fprintln(os.Stderr, "allocsim: no trace-files, watch-dir, or kafka-trace-topic configured")
		os.Exit(1)
	}

	strategy, err := placement.FromName(cfg.Strategy)
	if err != nil {
		glog.Fatal(err)
	}

	sinks, err := buildSinks(cfg)
	if err != nil {
		glog.Fatal(err)
	}
	defer sinks.Close()

	collector := metrics.NewCollector()
	go monitor.NewMonitorServer(cfg.MetricsAddr, "/metrics", collector).Run()

	ctx := context.Background()
	sem := semaphore.NewWeighted(cfg.MaxConcurrentTraces)
	var g errgroup.Group

	submit := func(path string) bool {
		if err := sem.Acquire(ctx, 1); err != nil {
			glog.Errorf("allocsim: %v", err)
			return false
		}
		g.Go(func() error {
			defer sem.Release(1)
			return runTraceFile(path, cfg.TotalMemory, strategy, sinks, collector)
		})
		return true
	}

	// Each explicit trace file and each file the watcher reports gets
	// its own private Allocator; the semaphore bounds how many run at
	// once, not how many exist in total.
	for _, path := range cfg.TraceFiles {
		submit(path)
	}
	if cfg.WatchDir != "" {
		watched, err := trace.WatchDir(ctx, cfg.WatchDir)
		if err != nil {
			glog.Fatal(err)
		}
		for path := range watched {
			if !submit(path) {
				break
			}
		}
	}

	if cfg.KafkaTraceTopic != "" {
		if cfg.Sinks.Kafka == nil {
			glog.Fatal("allocsim: kafka-trace-topic requires sinks.kafka.addresses")
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			glog.Fatal(err)
		}
		g.Go(func() error {
			defer sem.Release(1)
			return runKafkaTrace(ctx, cfg.Sinks.Kafka.Addresses, cfg.KafkaTraceTopic,
				cfg.TotalMemory, strategy, sinks, collector)
		})
	}

	if err := g.Wait(); err != nil {
		glog.Fatal(err)
	}
}

// runKafkaTrace replays operations consumed from a Kafka topic against
// a single long-lived Allocator, the streaming counterpart to
// runTraceFile's one-shot CSV file replay.
func runKafkaTrace(ctx context.Context, addresses []string, topic string,
	total int64, strategy placement.Strategy, sinks sink.Sink, collector *metrics.Collector) error {
	src, err := trace.NewKafkaSource(addresses, topic)
	if err != nil {
		return fmt.Errorf("allocsim: kafka trace %s: %w", topic, err)
	}
	defer src.Close()

	a := allocator.New(total, strategy)
	collector.Register("kafka:"+topic, a.Engine())
	defer collector.Unregister("kafka:" + topic)

	for {
		select {
		case op, ok := <-src.Ops():
			if !ok {
				return nil
			}
			applyAndPublish(a, op, sinks, "kafka trace "+topic)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runTraceFile replays one trace file against its own, private
// Allocator: concurrently processed traces never share state.
// Publishes every operation's outcome to sinks and exposes its engine
// under collector for the duration of the run.
func runTraceFile(path string, total int64, strategy placement.Strategy,
	sinks sink.Sink, collector *metrics.Collector) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("allocsim: %s: %w", path, err)
	}
	defer f.Close()

	ops, err := trace.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("allocsim: %s: %w", path, err)
	}

	a := allocator.New(total, strategy)
	collector.Register(path, a.Engine())
	defer collector.Unregister(path)

	for _, op := range ops {
		applyAndPublish(a, op, sinks, path)
	}
	return nil
}

// applyAndPublish runs op against a and reports its outcome to sinks.
// A failing sink publish is logged, not returned: sinks never affect
// the allocator operation they describe.
func applyAndPublish(a *allocator.Allocator, op allocator.Op, sinks sink.Sink, label string) {
	var result int64
	switch op.Type {
	case allocator.OpRequest:
		result = a.Request(op)
	case allocator.OpRelease:
		result = allocator.Fail
		if a.Release(op) {
			result = 0
		}
	}
	if err := sinks.Publish(op, result, sink.OccupancyOf(a.Engine())); err != nil {
		glog.V(2).Infof("allocsim: %s: sink publish: %v", label, err)
	}
}

func buildSinks(cfg *config.Config) (sink.Sink, error) {
	var sinks sink.Multi
	if k := cfg.Sinks.Kafka; k != nil {
		addresses := k.Addresses
		if len(addresses) == 0 {
			// Fall back to the -kafka flag when the config file omits
			// an explicit broker list.
			addresses = strings.Split(*kafka.Addresses, ",")
		}
		s, err := sink.NewKafka(addresses, k.Topic)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if i := cfg.Sinks.Influx; i != nil {
		s, err := sink.NewInflux(i.Addr, i.Database)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if sp := cfg.Sinks.Splunk; sp != nil {
		sinks = append(sinks, sink.NewSplunk(sp.URLs, sp.Token, sp.Index))
	}
	if r := cfg.Sinks.Redis; r != nil {
		sinks = append(sinks, sink.NewRedis(r.Addr, r.Password, r.KeyPrefix))
	}
	return sinks, nil
}
