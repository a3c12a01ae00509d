// Package fabric implements spec.md §4.E: the message-passing fabric —
// bounded queues, unbounded buffers, broadcast buses/fans, and the
// Subscriber binding that wires a provider to a consumer. Grounded on
// ws/internal/shared/broadcast.go and ws/internal/multi/broadcast.go
// (fan-out to a subscriber set) and the per-client `send chan []byte`
// shape in ws/internal/shared/connection.go (the Queue). Those files
// are themselves hand-rolled fanout over channels/mutexes, which is
// the pack's idiom for this — no third-party pub/sub library
// replaces it at this layer (NATS/Kafka are wired at the edges, in
// internal/natsbridge and internal/kafkabridge, as external
// providers/consumers bound via Subscriber).
package fabric

// Cloner is the policy with a single operation: clone(&T) -> owned T
// (spec.md §3). It is a compile-time, per-type, uniform choice across a
// given fabric instance — not runtime-pluggable (spec.md §9).
type Cloner[T any] interface {
	Clone(msg T) T
}

// CopyCloner clones by Go value copy. Correct whenever T's zero-copy
// assignment already produces an independent value (value types, or
// reference types the application treats as immutable once published).
type CopyCloner[T any] struct{}

func (CopyCloner[T]) Clone(msg T) T { return msg }

// Cloneable is implemented by message types that require a deep,
// polymorphic clone instead of a shallow value copy.
type Cloneable[T any] interface {
	CloneMessage() T
}

// CloneMethodCloner invokes T's own CloneMessage method.
type CloneMethodCloner[T Cloneable[T]] struct{}

func (CloneMethodCloner[T]) Clone(msg T) T { return msg.CloneMessage() }
