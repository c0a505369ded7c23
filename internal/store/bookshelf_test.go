package store

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)), NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestStore_GetBookshelf_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetBookshelf(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_EnsureBookshelf_CreatesEmptyShelves(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	shelf, err := s.EnsureBookshelf(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, shelf.Shelves, 3)
	for _, name := range domain.ShelfNames() {
		assert.NotNil(t, shelf.Shelves[name])
		assert.Empty(t, shelf.Shelves[name])
	}

	// Second call reads the persisted document instead of recreating it.
	again, err := s.GetBookshelf(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, shelf, again)
}

// recordingIndexer captures search index calls for assertions.
type recordingIndexer struct {
	mu      sync.Mutex
	deleted []string
}

func (r *recordingIndexer) IndexBookshelf(context.Context, string, *domain.Bookshelf) error {
	return nil
}

func (r *recordingIndexer) DeleteUserDocuments(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, userID)
	return nil
}

func TestStore_DeleteBookshelf_RemovesDocumentAndIndex(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	indexer := &recordingIndexer{}
	s.SetSearchIndexer(indexer)

	_, err := s.EnsureBookshelf(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteBookshelf(ctx, "user-1"))

	_, err = s.GetBookshelf(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNotFound)

	indexer.mu.Lock()
	defer indexer.mu.Unlock()
	assert.Equal(t, []string{"user-1"}, indexer.deleted)
}

func TestStore_PutBookshelf_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	shelf := domain.NewBookshelf()
	shelf.Add(domain.NewBook("book-1", domain.BookDraft{
		Title:      "Dune",
		Author:     "Frank Herbert",
		Categories: []string{"Science Fiction"},
	}), domain.ShelfCurrentlyReading)

	require.NoError(t, s.PutBookshelf(ctx, "user-1", shelf, "origin-a"))

	got, err := s.GetBookshelf(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got.Shelves[domain.ShelfCurrentlyReading], 1)
	assert.Equal(t, "Dune", got.Shelves[domain.ShelfCurrentlyReading][0].Title)
	assert.Equal(t, []string{"Science Fiction"}, got.Shelves[domain.ShelfCurrentlyReading][0].Categories)
}

func TestStore_WatchBookshelf_NotifiesOtherOrigins(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ch, cancel := s.WatchBookshelf("user-1", "origin-b")
	defer cancel()

	shelf := domain.NewBookshelf()
	shelf.Add(domain.NewBook("book-1", domain.BookDraft{Title: "Dune"}), domain.ShelfWantToRead)
	require.NoError(t, s.PutBookshelf(ctx, "user-1", shelf, "origin-a"))

	select {
	case snapshot := <-ch:
		require.Len(t, snapshot.Shelves[domain.ShelfWantToRead], 1)
		assert.Equal(t, "Dune", snapshot.Shelves[domain.ShelfWantToRead][0].Title)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot on the watch channel")
	}
}

func TestStore_WatchBookshelf_SkipsSameOrigin(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ch, cancel := s.WatchBookshelf("user-1", "origin-a")
	defer cancel()

	require.NoError(t, s.PutBookshelf(ctx, "user-1", domain.NewBookshelf(), "origin-a"))

	select {
	case <-ch:
		t.Fatal("writer must not receive an echo of its own write")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_WatchBookshelf_LatestSnapshotWins(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ch, cancel := s.WatchBookshelf("user-1", "origin-b")
	defer cancel()

	first := domain.NewBookshelf()
	first.Add(domain.NewBook("book-1", domain.BookDraft{Title: "Dune"}), domain.ShelfWantToRead)
	require.NoError(t, s.PutBookshelf(ctx, "user-1", first, "origin-a"))

	second := domain.NewBookshelf()
	second.Add(domain.NewBook("book-2", domain.BookDraft{Title: "Hyperion"}), domain.ShelfWantToRead)
	require.NoError(t, s.PutBookshelf(ctx, "user-1", second, "origin-a"))

	// Both writes landed before the read; only the newest snapshot remains.
	snapshot := <-ch
	require.Len(t, snapshot.Shelves[domain.ShelfWantToRead], 1)
	assert.Equal(t, "Hyperion", snapshot.Shelves[domain.ShelfWantToRead][0].Title)

	select {
	case extra := <-ch:
		t.Fatalf("expected no queued snapshots, got %d books", extra.TotalBooks())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_WatchBookshelf_CancelClosesChannel(t *testing.T) {
	s := testStore(t)

	ch, cancel := s.WatchBookshelf("user-1", "origin-b")
	cancel()
	cancel() // Safe to call twice.

	_, open := <-ch
	assert.False(t, open)

	// Writes after cancellation must not panic on a closed channel.
	require.NoError(t, s.PutBookshelf(context.Background(), "user-1", domain.NewBookshelf(), "origin-a"))
}

func TestStore_WatchBookshelf_IsolatedPerUser(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ch, cancel := s.WatchBookshelf("user-1", "origin-b")
	defer cancel()

	require.NoError(t, s.PutBookshelf(ctx, "user-2", domain.NewBookshelf(), "origin-a"))

	select {
	case <-ch:
		t.Fatal("watch must not fire for another user's bookshelf")
	case <-time.After(50 * time.Millisecond):
	}
}
