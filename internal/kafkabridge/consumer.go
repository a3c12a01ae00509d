// Package kafkabridge is a domain connector that feeds a fabric.Bus
// from a Kafka/Redpanda topic, for components that want broker traffic
// sourced from an upstream log rather than a direct TCP peer. Grounded
// on ws/kafka/consumer.go and ws/internal/shared/kafka/consumer.go
// (franz-go client construction, PollFetches loop, processRecord), but
// generalized: those consumers decode a TokenEvent-shaped JSON payload
// and call an application-supplied BroadcastFunc(tokenID, eventType,
// message); this one treats the topic as an opaque byte stream and
// pushes record.Value straight onto a fabric.Bus[[]byte], leaving
// decoding to whatever subscribes downstream (the same "codec is the
// caller's problem" stance internal/broker takes, spec.md §6).
package kafkabridge

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/adred-codev/netcore/internal/fabric"
	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/metrics"
	"github.com/adred-codev/netcore/internal/subsystem"
	"github.com/adred-codev/netcore/internal/threads"
)

// pollInterval bounds each PollFetches call so the consume loop notices
// ShouldTerminate() promptly instead of blocking on the client forever.
const pollInterval = 500 * time.Millisecond

// Config mirrors ws/kafka/consumer.go's ConsumerConfig, minus the
// Broadcast callback: output is always the bus returned by Output().
type Config struct {
	Brokers       []string
	ConsumerGroup string
	Topics        []string
	Logger        logging.Logger
}

// Consumer polls a Kafka/Redpanda topic and republishes each record's
// value on a fabric.Bus[[]byte].
type Consumer struct {
	client *kgo.Client
	logger logging.Logger
	name   string
	output *fabric.Bus[[]byte]
	worker *threads.Worker
}

// New builds a Consumer and registers its poll loop as a thread of
// parent. The returned error matches ws/kafka/consumer.go's
// NewConsumer validation: every required field must be set before a
// client is constructed.
func New(parent *subsystem.Subsystem, name string, cfg Config) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkabridge: at least one broker is required")
	}
	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("kafkabridge: consumer group is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("kafkabridge: at least one topic is required")
	}

	logger := cfg.Logger
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.FetchMaxWait(500*time.Millisecond),
		kgo.FetchMinBytes(1),
		kgo.FetchMaxBytes(10*1024*1024),
		kgo.SessionTimeout(30*time.Second),
		kgo.RebalanceTimeout(60*time.Second),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			logger.Access("kafkabridge: partitions assigned", map[string]any{"name": name, "partitions": assigned})
		}),
		kgo.OnPartitionsRevoked(func(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
			logger.Access("kafkabridge: partitions revoked", map[string]any{"name": name, "partitions": revoked})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("kafkabridge: create client: %w", err)
	}

	c := &Consumer{
		client: client,
		logger: logger,
		name:   name,
		output: fabric.NewBus[[]byte](byteSliceCloner{}),
	}
	c.worker = threads.NewWorker(name+"-consume", logger, c.consumeLoop)
	parent.AddThread(c.worker)
	return c, nil
}

// Output is the bus every consumed record's value is broadcast to.
func (c *Consumer) Output() *fabric.Bus[[]byte] { return c.output }

func (c *Consumer) consumeLoop() {
	for !c.worker.ShouldTerminate() {
		ctx, cancel := context.WithTimeout(context.Background(), pollInterval)
		fetches := c.client.PollFetches(ctx)
		cancel()

		for _, err := range fetches.Errors() {
			c.logger.Error("kafkabridge: fetch error", map[string]any{
				"name": c.name, "topic": err.Topic, "partition": err.Partition, "error": err.Err.Error(),
			})
		}

		fetches.EachRecord(func(record *kgo.Record) {
			if c.output.Push(record.Value) {
				metrics.BridgeMessagesTotal.WithLabelValues(c.name, "consumed").Inc()
			} else {
				metrics.BridgeMessagesTotal.WithLabelValues(c.name, "dropped").Inc()
			}
		})
	}
	c.client.Close()
}

type byteSliceCloner struct{}

func (byteSliceCloner) Clone(msg []byte) []byte {
	out := make([]byte, len(msg))
	copy(out, msg)
	return out
}
