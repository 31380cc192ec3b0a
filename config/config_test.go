// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "allocsim.yaml")
	const contents = `
total-memory: 2048
strategy: BEST_FIT
trace-files:
  - a.csv
  - b.csv
sinks:
  redis:
    addr: localhost:6379
    key-prefix: allocsim
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TotalMemory != 2048 {
		t.Errorf("TotalMemory = %d; want 2048", cfg.TotalMemory)
	}
	if cfg.Strategy != "BEST_FIT" {
		t.Errorf("Strategy = %q; want BEST_FIT", cfg.Strategy)
	}
	if len(cfg.TraceFiles) != 2 {
		t.Errorf("TraceFiles = %v; want 2 entries", cfg.TraceFiles)
	}
	if cfg.Sinks.Redis == nil || cfg.Sinks.Redis.Addr != "localhost:6379" {
		t.Errorf("Sinks.Redis = %+v; want addr localhost:6379", cfg.Sinks.Redis)
	}
	// Fields not present in the file should keep Default()'s value.
	if cfg.MaxConcurrentTraces != 4 {
		t.Errorf("MaxConcurrentTraces = %d; want default 4", cfg.MaxConcurrentTraces)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}
