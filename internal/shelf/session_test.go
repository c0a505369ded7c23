package shelf

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/sse"
)

// fakeStore implements DocumentStore in memory for session tests.
type fakeStore struct {
	mu      sync.Mutex
	puts    []*domain.Bookshelf
	failPut error
	started chan struct{} // Closed when the first put begins, if set
	gate    chan struct{} // Blocks puts until closed, if set

	watchCh chan domain.Bookshelf
}

func newFakeStore() *fakeStore {
	return &fakeStore{watchCh: make(chan domain.Bookshelf, 1)}
}

func (f *fakeStore) EnsureBookshelf(_ context.Context, _ string) (*domain.Bookshelf, error) {
	return domain.NewBookshelf(), nil
}

func (f *fakeStore) PutBookshelf(_ context.Context, _ string, shelf *domain.Bookshelf, _ string) error {
	f.mu.Lock()
	first := len(f.puts) == 0
	f.mu.Unlock()

	if first && f.started != nil {
		close(f.started)
	}
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut != nil {
		return f.failPut
	}
	f.puts = append(f.puts, shelf.Clone())
	return nil
}

func (f *fakeStore) WatchBookshelf(_, _ string) (<-chan domain.Bookshelf, func()) {
	return f.watchCh, func() {}
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

func (f *fakeStore) lastPut() *domain.Bookshelf {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.puts) == 0 {
		return nil
	}
	return f.puts[len(f.puts)-1]
}

func (f *fakeStore) setFailPut(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = err
}

// captureSink records emitted events.
type captureSink struct {
	mu     sync.Mutex
	events []any
}

func (c *captureSink) Emit(event any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func testSession(t *testing.T, store *fakeStore, sink EventSink) *Session {
	t.Helper()

	session, err := newSession(context.Background(), "user-1", store, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(session.Close)

	return session
}

func TestSession_AddBook_VisibleImmediatelyAndPersisted(t *testing.T) {
	store := newFakeStore()
	session := testSession(t, store, nil)

	book := session.AddBook(domain.BookDraft{Title: "Dune", Author: "Frank Herbert"}, domain.ShelfWantToRead)
	assert.NotEmpty(t, book.ID)

	snapshot := session.Snapshot()
	require.Len(t, snapshot.Shelves[domain.ShelfWantToRead], 1)
	assert.Equal(t, "Dune", snapshot.Shelves[domain.ShelfWantToRead][0].Title)

	require.Eventually(t, func() bool {
		last := store.lastPut()
		return last != nil && last.TotalBooks() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_MoveBook(t *testing.T) {
	store := newFakeStore()
	session := testSession(t, store, nil)

	session.AddBook(domain.BookDraft{Title: "Dune"}, domain.ShelfWantToRead)

	moved := session.MoveBook(MoveRequest{From: domain.ShelfWantToRead, Index: 0, To: domain.ShelfFinished})
	assert.True(t, moved)

	snapshot := session.Snapshot()
	assert.Empty(t, snapshot.Shelves[domain.ShelfWantToRead])
	require.Len(t, snapshot.Shelves[domain.ShelfFinished], 1)
}

func TestSession_MoveBook_OutOfRangeIsNoop(t *testing.T) {
	store := newFakeStore()
	session := testSession(t, store, nil)

	moved := session.MoveBook(MoveRequest{From: domain.ShelfWantToRead, Index: 5, To: domain.ShelfFinished})
	assert.False(t, moved)
}

func TestSession_BurstOfEditsCoalescesIntoOneWrite(t *testing.T) {
	store := newFakeStore()
	store.started = make(chan struct{})
	store.gate = make(chan struct{})
	session := testSession(t, store, nil)

	// First edit starts a persist that blocks on the gate.
	session.AddBook(domain.BookDraft{Title: "Dune"}, domain.ShelfWantToRead)
	<-store.started

	// Edits made while a write is in flight pile up as one pending snapshot.
	session.AddBook(domain.BookDraft{Title: "Hyperion"}, domain.ShelfWantToRead)
	session.AddBook(domain.BookDraft{Title: "Neuromancer"}, domain.ShelfWantToRead)

	close(store.gate)
	session.Close()

	// One blocked write plus one coalesced write for the two later edits.
	assert.Equal(t, 2, store.putCount())
	assert.Equal(t, 3, store.lastPut().TotalBooks())
}

func TestSession_Close_FlushesPendingSnapshot(t *testing.T) {
	store := newFakeStore()
	session := testSession(t, store, nil)

	session.AddBook(domain.BookDraft{Title: "Dune"}, domain.ShelfWantToRead)
	session.Close()

	require.NotNil(t, store.lastPut())
	assert.Equal(t, 1, store.lastPut().TotalBooks())
}

func TestSession_SyncStatus_ReportsPersistFailure(t *testing.T) {
	store := newFakeStore()
	store.setFailPut(errors.New("disk full"))
	sink := &captureSink{}
	session := testSession(t, store, sink)

	session.AddBook(domain.BookDraft{Title: "Dune"}, domain.ShelfWantToRead)

	require.Eventually(t, func() bool {
		ok, _ := session.SyncStatus()
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, message := session.SyncStatus()
	assert.Contains(t, message, "disk full")
	assert.GreaterOrEqual(t, sink.count(), 1)

	// The store recovers; the next edit clears the error.
	store.setFailPut(nil)
	session.AddBook(domain.BookDraft{Title: "Hyperion"}, domain.ShelfWantToRead)

	require.Eventually(t, func() bool {
		ok, _ := session.SyncStatus()
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestSession_SyncErrorEventCarriesUser(t *testing.T) {
	store := newFakeStore()
	store.setFailPut(errors.New("disk full"))
	sink := &captureSink{}
	session := testSession(t, store, sink)

	session.AddBook(domain.BookDraft{Title: "Dune"}, domain.ShelfWantToRead)

	require.Eventually(t, func() bool { return sink.count() > 0 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	event, ok := sink.events[0].(sse.Event)
	sink.mu.Unlock()
	require.True(t, ok)
	assert.Equal(t, sse.EventBookshelfSyncError, event.Type)
	assert.Equal(t, "user-1", event.UserID)
}

func TestSession_RemoteWriteReplacesWorkingCopy(t *testing.T) {
	store := newFakeStore()
	session := testSession(t, store, nil)

	remote := domain.NewBookshelf()
	remote.Add(domain.NewBook("book-remote", domain.BookDraft{Title: "Solaris"}), domain.ShelfFinished)
	store.watchCh <- *remote.Clone()

	require.Eventually(t, func() bool {
		snapshot := session.Snapshot()
		return len(snapshot.Shelves[domain.ShelfFinished]) == 1
	}, time.Second, 5*time.Millisecond)

	snapshot := session.Snapshot()
	assert.Equal(t, "Solaris", snapshot.Shelves[domain.ShelfFinished][0].Title)
}

func TestManager_Acquire_ReturnsSameSession(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(manager.Shutdown)

	a, err := manager.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	b, err := manager.Acquire(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestManager_Close_DiscardsSession(t *testing.T) {
	store := newFakeStore()
	manager := NewManager(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(manager.Shutdown)

	a, err := manager.Acquire(context.Background(), "user-1")
	require.NoError(t, err)

	manager.Close("user-1")

	b, err := manager.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}
