// Package memstore is an in-process implementation of canvas.Store. Every Save
// is broadcast to all subscribers of the key, including the writer's own
// subscription, the way a browser storage-change event reaches every tab.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/meikuraledutech/canvas"
)

// subscriberBuffer bounds each subscription; when full, the oldest pending
// document is dropped since only the latest one matters.
const subscriberBuffer = 16

// Store implements canvas.Store in memory.
type Store struct {
	mu   sync.Mutex
	docs map[string][]byte
	subs map[string]map[int]chan []byte
	next int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs: make(map[string][]byte),
		subs: make(map[string]map[int]chan []byte),
	}
}

// Load returns the document saved under key, or canvas.ErrNotFound.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[key]
	if !ok {
		return nil, canvas.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Save stores data under key and notifies every subscriber of key.
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[key] = slices.Clone(data)
	for _, ch := range s.subs[key] {
		deliver(ch, slices.Clone(data))
	}
	return nil
}

// Subscribe delivers every document saved under key until ctx is done.
func (s *Store) Subscribe(ctx context.Context, key string) (<-chan []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan []byte, subscriberBuffer)

	s.mu.Lock()
	id := s.next
	s.next++
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]chan []byte)
	}
	s.subs[key][id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[key], id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

func deliver(ch chan []byte, data []byte) {
	for {
		select {
		case ch <- data:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
