package audit

import (
	"context"
	"sync"
	"time"

	id "eucookie/pkg/domain"
)

type Store interface {
	Append(ctx context.Context, event Event) error
	ListByPage(ctx context.Context, pageID id.PageID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// InMemoryStore keeps events in append order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
	byPage map[id.PageID][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byPage: make(map[id.PageID][]int)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if !event.PageID.IsNil() {
		s.byPage[event.PageID] = append(s.byPage[event.PageID], len(s.events)-1)
	}
	return nil
}

func (s *InMemoryStore) ListByPage(_ context.Context, pageID id.PageID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.byPage[pageID]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.events[i])
	}
	return out, nil
}

// ListRecent returns up to limit events, newest first. limit <= 0 returns all.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := len(s.events) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// DeleteBefore drops events stamped before cutoff and returns how many were dropped.
func (s *InMemoryStore) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	byPage := make(map[id.PageID][]int, len(s.byPage))
	for _, event := range s.events {
		if event.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, event)
		if !event.PageID.IsNil() {
			byPage[event.PageID] = append(byPage[event.PageID], len(kept)-1)
		}
	}
	deleted := len(s.events) - len(kept)
	clear(s.events[len(kept):])
	s.events = kept
	s.byPage = byPage
	return deleted, nil
}
