package fabric

import "sync"

// Bus is a broadcast point: Push(msg) calls consumer.Push(clone(msg))
// for every attached consumer and returns true if at least one accepted
// (spec.md §4.E). Subscribers attach/detach is a snapshot-on-read: a
// Push iterates a copy of the subscriber set taken under lock, so it is
// atomic with respect to that snapshot but not atomic across subscribers
// (spec.md §5) — two subscribers sharing a separate Bus may observe
// messages in different relative order, though per-subscriber order is
// always preserved.
type Bus[T any] struct {
	cloner Cloner[T]

	mu        sync.RWMutex
	consumers map[int]Consumer[T]
	nextToken int
}

// NewBus constructs a Bus using cloner to duplicate each message per
// consumer.
func NewBus[T any](cloner Cloner[T]) *Bus[T] {
	return &Bus[T]{cloner: cloner, consumers: make(map[int]Consumer[T])}
}

// Push delivers a clone of msg to every attached consumer; returns true
// iff at least one consumer accepted it.
func (b *Bus[T]) Push(msg T) bool {
	b.mu.RLock()
	snapshot := make([]Consumer[T], 0, len(b.consumers))
	for _, c := range b.consumers {
		snapshot = append(snapshot, c)
	}
	b.mu.RUnlock()

	accepted := false
	for _, c := range snapshot {
		if c.Push(b.cloner.Clone(msg)) {
			accepted = true
		}
	}
	return accepted
}

// Len reports the number of attached consumers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.consumers)
}

func (b *Bus[T]) attach(c Consumer[T]) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextToken++
	token := b.nextToken
	b.consumers[token] = c
	return token
}

func (b *Bus[T]) detach(token int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.consumers, token)
}

// Fan is a Bus variant whose Push succeeds only if every consumer
// accepts the message (spec.md §4.E). Delivery is not atomic: when one
// consumer rejects, the consumers that accepted keep their copy and
// Push returns false. The choice between Bus and Fan is an
// application decision; both satisfy Provider[T].
type Fan[T any] struct {
	cloner Cloner[T]

	mu        sync.RWMutex
	consumers map[int]Consumer[T]
	nextToken int
}

// NewFan constructs a Fan using cloner to duplicate each message per
// consumer.
func NewFan[T any](cloner Cloner[T]) *Fan[T] {
	return &Fan[T]{cloner: cloner, consumers: make(map[int]Consumer[T])}
}

// Push delivers a clone of msg to every attached consumer and returns
// true only if ALL of them accepted it.
func (f *Fan[T]) Push(msg T) bool {
	f.mu.RLock()
	snapshot := make([]Consumer[T], 0, len(f.consumers))
	for _, c := range f.consumers {
		snapshot = append(snapshot, c)
	}
	f.mu.RUnlock()

	if len(snapshot) == 0 {
		return false
	}
	allAccepted := true
	for _, c := range snapshot {
		if !c.Push(f.cloner.Clone(msg)) {
			allAccepted = false
		}
	}
	return allAccepted
}

func (f *Fan[T]) attach(c Consumer[T]) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextToken++
	token := f.nextToken
	f.consumers[token] = c
	return token
}

func (f *Fan[T]) detach(token int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.consumers, token)
}
