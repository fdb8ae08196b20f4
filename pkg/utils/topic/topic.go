// Package topic provides a minimal in-process publish/subscribe topic.
package topic

import "sync"

// Topic fans out published values to all current subscribers. Publishing
// never blocks: a subscriber whose buffer is full misses the value.
type Topic[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
}

// New creates an empty topic
func New[T any]() *Topic[T] {
	return &Topic[T]{
		subs: make(map[int]chan T),
	}
}

// Publish delivers v to all subscribers
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
			// slow subscriber, drop
		}
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel function must be called to release the subscription; it closes the
// channel.
func (t *Topic[T]) Subscribe(buf int) (<-chan T, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan T, buf)
	t.subs[id] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}
