package shelf

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/id"
	"github.com/shelfmarkapp/shelfmark-server/internal/sse"
)

// DocumentStore is the slice of the store a session needs.
type DocumentStore interface {
	EnsureBookshelf(ctx context.Context, userID string) (*domain.Bookshelf, error)
	PutBookshelf(ctx context.Context, userID string, shelf *domain.Bookshelf, origin string) error
	WatchBookshelf(userID, origin string) (<-chan domain.Bookshelf, func())
}

// EventSink receives SSE events produced by sessions.
type EventSink interface {
	Emit(event any)
}

// Session is a user's live working copy of their bookshelf.
//
// Edits mutate the in-memory copy immediately and schedule a background
// persist. Writes are coalesced: at most one is in flight, and a burst of
// edits collapses into a single write of the newest snapshot. Writes from
// other origins (another device on the same account) arrive through the
// store watch and replace the working copy wholesale.
type Session struct {
	userID string
	origin string
	store  DocumentStore
	sink   EventSink
	logger *slog.Logger

	mu      sync.RWMutex
	shelves *domain.Bookshelf
	syncErr string // Last persist failure, empty when in sync

	pmu     sync.Mutex
	pending *domain.Bookshelf // Newest unsaved snapshot, nil when drained

	writeCh     chan struct{}
	done        chan struct{}
	wg          sync.WaitGroup
	cancelWatch func()
	closeOnce   sync.Once
}

func newSession(ctx context.Context, userID string, store DocumentStore, sink EventSink, logger *slog.Logger) (*Session, error) {
	shelves, err := store.EnsureBookshelf(ctx, userID)
	if err != nil {
		return nil, err
	}

	s := &Session{
		userID:  userID,
		origin:  id.MustGenerate("origin"),
		store:   store,
		sink:    sink,
		logger:  logger,
		shelves: shelves,
		writeCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	watchCh, cancelWatch := store.WatchBookshelf(userID, s.origin)
	s.cancelWatch = cancelWatch

	s.wg.Add(2)
	go s.writer()
	go s.watch(watchCh)

	return s, nil
}

// Snapshot returns a deep copy of the current working state.
func (s *Session) Snapshot() *domain.Bookshelf {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shelves.Clone()
}

// SyncStatus reports whether the working copy is persisted. When the last
// background write failed, ok is false and message carries the failure.
func (s *Session) SyncStatus() (ok bool, message string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncErr == "", s.syncErr
}

// AddBook creates a book from the draft and shelves it, returning the new
// book with its assigned ID.
func (s *Session) AddBook(draft domain.BookDraft, target domain.ShelfName) domain.Book {
	book := domain.NewBook(id.MustGenerate("book"), draft)

	s.mutate(func(shelves *domain.Bookshelf) {
		shelves.Add(book, target)
	})

	return book
}

// MoveBook applies a resolved drag-and-drop move. Same-shelf and
// out-of-range moves are no-ops and report false.
func (s *Session) MoveBook(req MoveRequest) bool {
	var moved bool
	s.mutate(func(shelves *domain.Bookshelf) {
		moved = shelves.Move(req.From, req.Index, req.To)
	})
	return moved
}

// RemoveBook deletes the book at index on the shelf.
func (s *Session) RemoveBook(shelf domain.ShelfName, index int) bool {
	var removed bool
	s.mutate(func(shelves *domain.Bookshelf) {
		removed = shelves.Remove(shelf, index)
	})
	return removed
}

// UpdateBook applies a partial update to the book at index on the shelf.
func (s *Session) UpdateBook(shelf domain.ShelfName, index int, patch domain.BookPatch) bool {
	var updated bool
	s.mutate(func(shelves *domain.Bookshelf) {
		updated = shelves.Update(shelf, index, patch)
	})
	return updated
}

// Close stops the background goroutines, flushing any unsaved snapshot
// first. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancelWatch()
		close(s.done)
	})
	s.wg.Wait()
}

// mutate applies an edit under the lock and schedules a persist of the
// resulting snapshot.
func (s *Session) mutate(apply func(*domain.Bookshelf)) {
	s.mu.Lock()
	apply(s.shelves)
	snapshot := s.shelves.Clone()
	s.mu.Unlock()

	s.scheduleWrite(snapshot)
}

// scheduleWrite replaces the pending snapshot and wakes the writer.
// Older unsaved snapshots are discarded; only the newest state persists.
func (s *Session) scheduleWrite(snapshot *domain.Bookshelf) {
	s.pmu.Lock()
	s.pending = snapshot
	s.pmu.Unlock()

	select {
	case s.writeCh <- struct{}{}:
	default:
	}
}

// takePending removes and returns the pending snapshot, or nil.
func (s *Session) takePending() *domain.Bookshelf {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	snapshot := s.pending
	s.pending = nil
	return snapshot
}

// writer persists pending snapshots one at a time until the session closes.
func (s *Session) writer() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			// Final flush of anything still unsaved.
			if snapshot := s.takePending(); snapshot != nil {
				s.persist(snapshot)
			}
			return
		case <-s.writeCh:
			for {
				snapshot := s.takePending()
				if snapshot == nil {
					break
				}
				s.persist(snapshot)
			}
		}
	}
}

func (s *Session) persist(snapshot *domain.Bookshelf) {
	err := s.store.PutBookshelf(context.Background(), s.userID, snapshot, s.origin)

	s.mu.Lock()
	if err != nil {
		s.syncErr = err.Error()
	} else {
		s.syncErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to persist bookshelf",
			"user_id", s.userID,
			"error", err,
		)
		if s.sink != nil {
			s.sink.Emit(sse.NewSyncErrorEvent(s.userID, err.Error()))
		}
	}
}

// watch replaces the working copy whenever another origin writes.
// The newest remote state wins over local unsaved edits.
func (s *Session) watch(ch <-chan domain.Bookshelf) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			s.mu.Lock()
			s.shelves = &snapshot
			s.mu.Unlock()
		}
	}
}
