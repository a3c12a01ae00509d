package fabric

import "sync"

// Subscriber is a scoped binding {provider, consumer}: construction
// attaches the consumer to the provider, and Close (its RAII-style
// destructor in Go) detaches it (spec.md §3, §4.E, invariant 6 of §8).
// A Subscriber never outlives either endpoint in practice because
// detaching is explicit and idempotent.
type Subscriber[T any] struct {
	once     sync.Once
	provider Provider[T]
	token    int
}

// Subscribe attaches consumer to provider and returns the scoped binding.
// Registration order across subscribers is preserved but not
// semantically significant.
func Subscribe[T any](provider Provider[T], consumer Consumer[T]) *Subscriber[T] {
	token := provider.attach(consumer)
	return &Subscriber[T]{provider: provider, token: token}
}

// Close detaches the consumer from the provider. Safe to call multiple
// times; only the first call has an effect.
func (s *Subscriber[T]) Close() {
	s.once.Do(func() {
		s.provider.detach(s.token)
	})
}

// SubscriberList is a small RAII-style helper for releasing a batch of
// subscriptions together — grounded on the broker's
// "SubscriberListReleaser" (spec.md §4.K): a sender thread subscribes
// its input queue to every registered provider for the duration of its
// run loop, then releases them all at once on exit.
type SubscriberList[T any] struct {
	subs []*Subscriber[T]
}

// SubscribeAll attaches consumer to every provider in providers.
func SubscribeAll[T any](providers []Provider[T], consumer Consumer[T]) *SubscriberList[T] {
	list := &SubscriberList[T]{}
	for _, p := range providers {
		list.subs = append(list.subs, Subscribe(p, consumer))
	}
	return list
}

// Close releases every subscription in the list.
func (l *SubscriberList[T]) Close() {
	for _, s := range l.subs {
		s.Close()
	}
	l.subs = nil
}
