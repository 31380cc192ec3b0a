// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package config is the representation of allocsim's YAML config file,
// in the style of cmd/ocprometheus's Config: a plain struct unmarshaled
// with gopkg.in/yaml.v2, with command-line flags layered on top to
// override individual fields for one-off runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// KafkaConfig configures the sink.Kafka (and, reused, trace.KafkaSource) collaborator.
type KafkaConfig struct {
	Addresses []string `yaml:"addresses"`
	Topic     string   `yaml:"topic"`
}

// InfluxConfig configures sink.Influx.
type InfluxConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
}

// SplunkConfig configures sink.Splunk.
type SplunkConfig struct {
	URLs  []string `yaml:"urls"`
	Token string   `yaml:"token"`
	Index string   `yaml:"index"`
}

// RedisConfig configures sink.Redis.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	KeyPrefix string `yaml:"key-prefix"`
}

// SinksConfig selects which sinks to wire up; a nil field leaves that
// sink disabled.
type SinksConfig struct {
	Kafka  *KafkaConfig  `yaml:"kafka,omitempty"`
	Influx *InfluxConfig `yaml:"influx,omitempty"`
	Splunk *SplunkConfig `yaml:"splunk,omitempty"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
}

// Config is the representation of allocsim's YAML config file: the
// region's fixed capacity, the placement strategy name, where to read
// trace operations from, and where to publish telemetry about the
// operations it replays.
type Config struct {
	// TotalMemory is the fixed capacity of the simulated region.
	TotalMemory int64 `yaml:"total-memory"`

	// Strategy names the placement strategy: FIRST_FIT, BEST_FIT, or WORST_FIT.
	Strategy string `yaml:"strategy"`

	// TraceFiles lists CSV trace files to process, one Allocator per file.
	TraceFiles []string `yaml:"trace-files,omitempty"`

	// WatchDir, if set, is watched for newly written trace files in
	// addition to TraceFiles.
	WatchDir string `yaml:"watch-dir,omitempty"`

	// KafkaTraceTopic, if set alongside Sinks.Kafka.Addresses, consumes
	// trace operations from a Kafka topic instead of (or in addition
	// to) files.
	KafkaTraceTopic string `yaml:"kafka-trace-topic,omitempty"`

	// MaxConcurrentTraces bounds how many trace files/streams are
	// processed at once, each against its own Allocator.
	MaxConcurrentTraces int64 `yaml:"max-concurrent-traces"`

	// Sinks configures the telemetry consumers.
	Sinks SinksConfig `yaml:"sinks"`

	// MetricsAddr is the address the Prometheus /metrics endpoint and
	// the monitor package's /debug endpoints are served on.
	MetricsAddr string `yaml:"metrics-addr"`
}

// Default returns a Config with the same defaults the CLI flags fall
// back to when no config file is given.
func Default() *Config {
	return &Config{
		TotalMemory:         1 << 20,
		Strategy:            "FIRST_FIT",
		MaxConcurrentTraces: 4,
		MetricsAddr:         ":8080",
	}
}

// Load reads and parses a YAML config file at path, starting from Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}
