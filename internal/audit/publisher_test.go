package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "eucookie/pkg/domain"
)

type failingStore struct {
	InMemoryStore
	err error
}

func (s *failingStore) Append(context.Context, Event) error {
	return s.err
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	pub := NewPublisher(NewInMemoryStore())
	pageID := id.NewPageID()

	require.NoError(t, pub.Emit(context.Background(), Event{PageID: pageID, Action: ActionInit, Scope: "#main"}))

	events, err := pub.ListByPage(context.Background(), pageID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ActionInit, events[0].Action)
	assert.Equal(t, "#main", events[0].Scope)
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	fixed := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	pub := NewPublisher(NewInMemoryStore(), WithPublisherClock(func() time.Time { return fixed }))
	pageID := id.NewPageID()

	require.NoError(t, pub.Emit(context.Background(), Event{PageID: pageID, Action: ActionInit}))

	events, _ := pub.ListByPage(context.Background(), pageID)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublisher_SyncPropagatesStoreError(t *testing.T) {
	want := errors.New("disk full")
	pub := NewPublisher(&failingStore{err: want})

	assert.ErrorIs(t, pub.Emit(context.Background(), Event{Action: ActionInit}), want)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(16))
	pageID := id.NewPageID()

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), Event{PageID: pageID, Action: ActionInit}))
	}
	pub.Close()
	pub.Close()

	events, err := store.ListByPage(context.Background(), pageID)
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_AsyncLogsStoreErrors(t *testing.T) {
	var buf bytes.Buffer
	pub := NewPublisher(&failingStore{err: errors.New("disk full")},
		WithAsyncBuffer(1),
		WithPublisherLogger(slog.New(slog.NewTextHandler(&buf, nil))),
	)

	require.NoError(t, pub.Emit(context.Background(), Event{Action: ActionInit}))
	pub.Close()

	assert.Contains(t, buf.String(), "failed to persist audit event")
}

func TestInMemoryStore_ListRecent(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	for _, action := range []string{ActionLibraryLoaded, ActionInit, ActionSettingsReloaded} {
		require.NoError(t, store.Append(ctx, Event{Action: action}))
	}

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ActionSettingsReloaded, recent[0].Action)
	assert.Equal(t, ActionInit, recent[1].Action)

	all, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.ListByPage(ctx, id.NewPageID())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInMemoryStore_DeleteBefore(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	stalePage := id.NewPageID()
	freshPage := id.NewPageID()

	require.NoError(t, store.Append(ctx, Event{PageID: stalePage, Action: ActionLibraryLoaded, Timestamp: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Append(ctx, Event{Action: ActionSettingsReloaded, Timestamp: now.Add(-90 * time.Minute)}))
	require.NoError(t, store.Append(ctx, Event{PageID: freshPage, Action: ActionLibraryLoaded, Timestamp: now.Add(-5 * time.Minute)}))
	require.NoError(t, store.Append(ctx, Event{PageID: freshPage, Action: ActionInit, Timestamp: now.Add(-4 * time.Minute)}))

	pub := NewPublisher(store)
	deleted, err := pub.DeleteBefore(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	stale, err := store.ListByPage(ctx, stalePage)
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := store.ListByPage(ctx, freshPage)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, ActionLibraryLoaded, fresh[0].Action)
	assert.Equal(t, ActionInit, fresh[1].Action)

	all, err := store.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// appends after a prune index correctly
	require.NoError(t, store.Append(ctx, Event{PageID: freshPage, Action: ActionInitFailed, Timestamp: now}))
	fresh, err = store.ListByPage(ctx, freshPage)
	require.NoError(t, err)
	require.Len(t, fresh, 3)
	assert.Equal(t, ActionInitFailed, fresh[2].Action)
}
