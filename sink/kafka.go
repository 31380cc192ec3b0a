// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package sink

import (
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/aristanetworks/allocsim/allocator"
	"github.com/aristanetworks/allocsim/kafka"
)

// Kafka publishes each operation and its result as a sarama message.
// Successes and errors are drained on their own goroutines so Publish
// never blocks on broker round trips.
type Kafka struct {
	topic    string
	producer sarama.AsyncProducer
	wg       sync.WaitGroup
	done     chan struct{}
}

// NewKafka opens an async producer against addresses, publishing to topic.
func NewKafka(addresses []string, topic string) (*Kafka, error) {
	client, err := kafka.NewClient(addresses)
	if err != nil {
		return nil, fmt.Errorf("sink: kafka: %w", err)
	}
	p, err := sarama.NewAsyncProducerFromClient(client)
	if err != nil {
		return nil, fmt.Errorf("sink: kafka: %w", err)
	}
	k := &Kafka{topic: topic, producer: p, done: make(chan struct{})}
	k.wg.Add(2)
	go k.drainSuccesses()
	go k.drainErrors()
	return k, nil
}

func (k *Kafka) drainSuccesses() {
	defer k.wg.Done()
	for range k.producer.Successes() {
	}
}

func (k *Kafka) drainErrors() {
	defer k.wg.Done()
	for err := range k.producer.Errors() {
		Log.Infof("sink: kafka: %v", err)
	}
}

func (k *Kafka) Publish(op allocator.Op, result int64, occ Occupancy) error {
	return publishBestEffort("kafka", func() error {
		msg := &sarama.ProducerMessage{
			Topic: k.topic,
			Value: sarama.StringEncoder(fmt.Sprintf(
				"%s,%d,%d,result=%d,free=%d,alloc=%d",
				op.Type, op.Size, op.Addr, result, occ.FreeBytes, occ.AllocatedBytes)),
		}
		select {
		case k.producer.Input() <- msg:
			return nil
		case <-k.done:
			return nil
		}
	})
}

func (k *Kafka) Close() error {
	select {
	case <-k.done:
		return nil
	default:
	}
	close(k.done)
	k.producer.AsyncClose()
	k.wg.Wait()
	return nil
}
