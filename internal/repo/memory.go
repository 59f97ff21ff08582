package repo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkordes/tripboard/backend/internal/domain"
)

// MemoryStore is the in-process DocumentStore used when no DATABASE_URL is
// configured (local-only demo mode) and in tests. Subscriptions resolve to
// the current state shortly after subscribing instead of hanging, so an
// unconfigured backend never blocks startup.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]json.RawMessage
	nextID int
	subs   map[int]memorySub

	// initialDelay spaces out the first snapshot delivery, mimicking a
	// remote round trip. Tests may set it to zero.
	initialDelay time.Duration
}

type memorySub struct {
	docID string
	fn    func(json.RawMessage)
}

// NewMemoryStore constructs an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:         map[string]json.RawMessage{},
		subs:         map[int]memorySub{},
		initialDelay: 50 * time.Millisecond,
	}
}

// Get retrieves a copy of the stored document.
func (s *MemoryStore) Get(_ context.Context, id string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := make(json.RawMessage, len(doc))
	copy(out, doc)
	return out, nil
}

// Set stores a copy of doc and notifies subscribers asynchronously.
func (s *MemoryStore) Set(_ context.Context, id string, doc json.RawMessage) error {
	cp := make(json.RawMessage, len(doc))
	copy(cp, doc)

	s.mu.Lock()
	s.docs[id] = cp
	subs := s.subscribersLocked(id)
	s.mu.Unlock()

	for _, fn := range subs {
		go fn(cp)
	}
	return nil
}

// Delete removes the document and notifies subscribers with nil.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.docs[id]
	delete(s.docs, id)
	subs := s.subscribersLocked(id)
	s.mu.Unlock()

	if !ok {
		return domain.ErrNotFound
	}
	for _, fn := range subs {
		go fn(nil)
	}
	return nil
}

// Subscribe registers fn and schedules the initial snapshot delivery.
func (s *MemoryStore) Subscribe(ctx context.Context, id string, fn func(json.RawMessage)) (func(), error) {
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.subs[key] = memorySub{docID: id, fn: fn}
	delay := s.initialDelay
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		delete(s.subs, key)
		s.mu.Unlock()
	}

	go func() {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			unsubscribe()
			return
		}
		doc, err := s.Get(ctx, id)
		if err != nil {
			fn(nil)
			return
		}
		fn(doc)
	}()

	context.AfterFunc(ctx, unsubscribe)
	return unsubscribe, nil
}

// SetInitialDelay overrides the snapshot delivery delay; tests set it to 0.
func (s *MemoryStore) SetInitialDelay(d time.Duration) {
	s.mu.Lock()
	s.initialDelay = d
	s.mu.Unlock()
}

func (s *MemoryStore) subscribersLocked(id string) []func(json.RawMessage) {
	var out []func(json.RawMessage)
	for _, sub := range s.subs {
		if sub.docID == id {
			out = append(out, sub.fn)
		}
	}
	return out
}
