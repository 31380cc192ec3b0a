// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package kafka builds the sarama.Client shared by the sink and trace
// packages' Kafka producer and consumer.
package kafka

import (
	"os"

	"github.com/Shopify/sarama"
)

// NewClient returns a Kafka client for addresses, used to build both
// the sink.Kafka producer and the trace.KafkaSource consumer so they
// agree on compression and client identification.
func NewClient(addresses []string) (sarama.Client, error) {
	config := sarama.NewConfig()
	hostname, err := os.Hostname()
	if err != nil {
		hostname = ""
	}
	config.ClientID = hostname
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Return.Successes = true

	return sarama.NewClient(addresses, config)
}
