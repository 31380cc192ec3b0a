// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package trace

import (
	"bytes"
	"context"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/aristanetworks/allocsim/allocator"
	"github.com/aristanetworks/allocsim/kafka"
	"github.com/aristanetworks/glog"
)

// KafkaSource consumes a topic whose messages are single CSV-framed
// trace records, for deployments that feed the allocator
// operations over the wire instead of from a file: the network-fed
// counterpart to ReadCSV/WatchDir.
type KafkaSource struct {
	consumer      sarama.Consumer
	partconsumers []sarama.PartitionConsumer
	ops           chan allocator.Op
	done          chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
	closeErr      error
}

// NewKafkaSource opens a consumer against addresses and starts reading
// topic from the oldest available offset on every partition.
func NewKafkaSource(addresses []string, topic string) (*KafkaSource, error) {
	client, err := kafka.NewClient(addresses)
	if err != nil {
		return nil, err
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		return nil, err
	}
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		consumer.Close()
		return nil, err
	}

	s := &KafkaSource{
		consumer: consumer,
		ops:      make(chan allocator.Op),
		done:     make(chan struct{}),
	}
	for _, p := range partitions {
		pc, err := consumer.ConsumePartition(topic, p, sarama.OffsetOldest)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.partconsumers = append(s.partconsumers, pc)
		s.wg.Add(1)
		go s.consume(pc)
	}
	return s, nil
}

func (s *KafkaSource) consume(pc sarama.PartitionConsumer) {
	defer s.wg.Done()
	for {
		select {
		case msg, ok := <-pc.Messages():
			if !ok {
				return
			}
			op, err := parseLine(string(bytes.TrimSpace(msg.Value)))
			if err != nil {
				glog.Errorf("trace: kafka message at offset %d: %v", msg.Offset, err)
				continue
			}
			select {
			case s.ops <- op:
			case <-s.done:
				return
			}
		case err, ok := <-pc.Errors():
			if !ok {
				return
			}
			glog.Errorf("trace: kafka partition consumer: %v", err)
		case <-s.done:
			return
		}
	}
}

// Ops returns the channel operations are delivered on.
func (s *KafkaSource) Ops() <-chan allocator.Op { return s.ops }

// Run blocks, feeding s.Ops() until ctx is done or Close is called.
func (s *KafkaSource) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.done:
	}
	s.Close()
}

// Close stops consumption and releases the underlying Kafka consumer.
func (s *KafkaSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		for _, pc := range s.partconsumers {
			pc.AsyncClose()
		}
		s.wg.Wait()
		close(s.ops)
		s.closeErr = s.consumer.Close()
	})
	return s.closeErr
}
