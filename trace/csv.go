// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package trace supplies allocator operations from outside the core:
// a CSV trace format, a directory watcher that feeds newly written
// trace files to the CLI driver, and a Kafka-consumed trace stream
// for operations arriving over the wire instead of on disk.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aristanetworks/allocsim/allocator"
)

// ReadCSV parses the trace format: one record per non-blank
// line, three comma-separated fields (op_type, size, addr) in that
// order, whitespace tolerated, an empty field meaning "unspecified".
// op_type is 1 for REQUEST, 0 for RELEASE.
func ReadCSV(r io.Reader) ([]allocator.Op, error) {
	var ops []allocator.Op
	s := bufio.NewScanner(r)
	lineNum := 0
	for s.Scan() {
		lineNum++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		op, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", lineNum, err)
		}
		ops = append(ops, op)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	return ops, nil
}

func parseLine(line string) (allocator.Op, error) {
	fields := strings.Split(strings.ReplaceAll(line, " ", ""), ",")
	if len(fields) != 3 {
		return allocator.Op{}, fmt.Errorf("want 3 comma-separated fields, got %d", len(fields))
	}

	opTypeInt, err := strconv.Atoi(fields[0])
	if err != nil {
		return allocator.Op{}, fmt.Errorf("invalid op_type %q: %w", fields[0], err)
	}
	opType := allocator.OpRelease
	if opTypeInt == 1 {
		opType = allocator.OpRequest
	}

	op := allocator.Op{Type: opType}
	if fields[1] != "" {
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return allocator.Op{}, fmt.Errorf("invalid size %q: %w", fields[1], err)
		}
		op.Size = size
	}
	if fields[2] != "" {
		addr, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return allocator.Op{}, fmt.Errorf("invalid addr %q: %w", fields[2], err)
		}
		op.Addr = addr
		op.HasAddr = true
	}
	return op, nil
}

// WriteCSV renders ops back to the trace format, for tools that
// capture a run and want to replay it later.
func WriteCSV(w io.Writer, ops []allocator.Op) error {
	for _, op := range ops {
		opTypeInt := 0
		if op.Type == allocator.OpRequest {
			opTypeInt = 1
		}
		addr := ""
		if op.HasAddr {
			addr = strconv.FormatInt(op.Addr, 10)
		}
		if _, err := fmt.Fprintf(w, "%d,%d,%s\n", opTypeInt, op.Size, addr); err != nil {
			return err
		}
	}
	return nil
}
