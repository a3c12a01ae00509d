package kafkabridge

import (
	"testing"

	"github.com/adred-codev/netcore/internal/logging"
	"github.com/adred-codev/netcore/internal/subsystem"
)

// New talks to a real broker for anything beyond config validation, so
// unlike broker/wsbridge (both loopback-TCP testable) these cases are
// the only ones exercisable without live infrastructure.

func TestNewRejectsMissingBrokers(t *testing.T) {
	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	_, err := New(root, "bridge", Config{ConsumerGroup: "g", Topics: []string{"t"}})
	if err == nil {
		t.Fatal("expected an error when no brokers are configured")
	}
}

func TestNewRejectsMissingConsumerGroup(t *testing.T) {
	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	_, err := New(root, "bridge", Config{Brokers: []string{"localhost:9092"}, Topics: []string{"t"}})
	if err == nil {
		t.Fatal("expected an error when no consumer group is configured")
	}
}

func TestNewRejectsMissingTopics(t *testing.T) {
	root := subsystem.New("test", subsystem.WithLogger(logging.Noop()))
	_, err := New(root, "bridge", Config{Brokers: []string{"localhost:9092"}, ConsumerGroup: "g"})
	if err == nil {
		t.Fatal("expected an error when no topics are configured")
	}
}
