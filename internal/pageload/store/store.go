package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"eucookie/internal/pageload/models"
	id "eucookie/pkg/domain"
	"eucookie/pkg/platform/sentinel"
	pkgsync "eucookie/pkg/platform/sync"
)

// Error Contract:
// - FindByID and Update return sentinel.ErrNotFound for unknown pages
// - Save returns sentinel.ErrConflict when the page ID is already taken

// InMemoryStore keeps page records in memory. Updates to one page are
// serialized by a per-key shard lock; the map itself has its own lock.
type InMemoryStore struct {
	mu    sync.RWMutex
	pages map[id.PageID]*models.Record
	locks *pkgsync.ShardedMutex
}

func New() *InMemoryStore {
	return &InMemoryStore{
		pages: make(map[id.PageID]*models.Record),
		locks: pkgsync.NewShardedMutex(),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pages[record.Page.ID]; exists {
		return fmt.Errorf("page %s: %w", record.Page.ID, sentinel.ErrConflict)
	}
	copyRecord := *record
	s.pages[record.Page.ID] = &copyRecord
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, pageID id.PageID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.pages[pageID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *record
	return &copyRecord, nil
}

// Update applies fn to a copy of the page and stores the result if fn succeeds.
// Updates to one page are serialized; other pages proceed in parallel.
func (s *InMemoryStore) Update(ctx context.Context, pageID id.PageID, fn func(*models.Record) error) (*models.Record, error) {
	var updated *models.Record
	err := s.locks.With(pageID.String(), func() error {
		current, err := s.FindByID(ctx, pageID)
		if err != nil {
			return err
		}
		if err := fn(current); err != nil {
			return err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.pages[pageID]; !ok {
			return sentinel.ErrNotFound
		}
		stored := *current
		s.pages[pageID] = &stored
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// List returns all pages, newest first.
func (s *InMemoryStore) List(_ context.Context) ([]models.Page, error) {
	s.mu.RLock()
	pages := make([]models.Page, 0, len(s.pages))
	for _, record := range s.pages {
		pages = append(pages, record.Page)
	}
	s.mu.RUnlock()

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].CreatedAt.After(pages[j].CreatedAt)
	})
	return pages, nil
}

// DeleteCreatedBefore removes pages created before cutoff and returns how many were removed.
func (s *InMemoryStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for pageID, record := range s.pages {
		if record.Page.CreatedAt.Before(cutoff) {
			delete(s.pages, pageID)
			deleted++
		}
	}
	return deleted, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages), nil
}
