// Package bus provides typed publish/subscribe topics scoped to one application
// instance.
package bus

import (
	"sort"
	"sync"
)

// Topic delivers values of type T to its subscribers, synchronously and in
// subscription order. The zero value is ready to use.
type Topic[T any] struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subs == nil {
		t.subs = make(map[int]func(T))
	}
	id := t.next
	t.next++
	t.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Publish calls every current subscriber with v. Subscribers may subscribe or
// unsubscribe from inside the callback.
func (t *Topic[T]) Publish(v T) {
	for _, fn := range t.snapshot() {
		fn(v)
	}
}

// Len returns the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

func (t *Topic[T]) snapshot() []func(T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]int, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), len(ids))
	for i, id := range ids {
		fns[i] = t.subs[id]
	}
	return fns
}
