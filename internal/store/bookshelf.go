package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/sse"
)

const bookshelfPrefix = "bookshelf:"

// GetBookshelf retrieves a user's bookshelf.
// Returns ErrNotFound when the user has no persisted bookshelf yet.
func (s *Store) GetBookshelf(ctx context.Context, userID string) (*domain.Bookshelf, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(bookshelfPrefix, userID)
	defer releaseKey(key)

	var shelf domain.Bookshelf
	if err := s.get(key, &shelf); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get bookshelf: %w", err)
	}

	// Stored documents predating a shelf always carry all three; guard anyway.
	if shelf.Shelves == nil {
		return domain.NewBookshelf(), nil
	}
	for _, name := range domain.ShelfNames() {
		if shelf.Shelves[name] == nil {
			shelf.Shelves[name] = []domain.Book{}
		}
	}

	return &shelf, nil
}

// EnsureBookshelf retrieves a user's bookshelf, creating an empty one if
// none exists. New accounts get their bookshelf on first access.
func (s *Store) EnsureBookshelf(ctx context.Context, userID string) (*domain.Bookshelf, error) {
	shelf, err := s.GetBookshelf(ctx, userID)
	if err == nil {
		return shelf, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	shelf = domain.NewBookshelf()

	key := buildKey(bookshelfPrefix, userID)
	defer releaseKey(key)

	if err := s.set(key, shelf); err != nil {
		return nil, fmt.Errorf("create bookshelf: %w", err)
	}

	return shelf, nil
}

// PutBookshelf persists the full bookshelf document for a user, then fans the
// new state out to SSE clients, watchers, and the search index.
//
// The origin tag identifies the writer. Watches registered with the same
// origin are skipped so a writer never receives an echo of its own snapshot,
// which could otherwise clobber newer local state.
func (s *Store) PutBookshelf(ctx context.Context, userID string, shelf *domain.Bookshelf, origin string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(bookshelfPrefix, userID)
	defer releaseKey(key)

	if err := s.set(key, shelf); err != nil {
		return fmt.Errorf("put bookshelf: %w", err)
	}

	snapshot := shelf.Clone()

	if s.eventEmitter != nil {
		s.eventEmitter.Emit(sse.NewBookshelfUpdatedEvent(userID, snapshot))
	}

	s.watches.notify(userID, origin, snapshot)

	if s.searchIndexer != nil {
		// Index asynchronously so a slow index never blocks a write.
		go func() {
			if err := s.searchIndexer.IndexBookshelf(context.Background(), userID, snapshot); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to index bookshelf", "user_id", userID, "error", err)
				}
			}
		}()
	}

	return nil
}

// DeleteBookshelf removes a user's bookshelf document and its entries in
// the search index. Used when an account is deleted.
func (s *Store) DeleteBookshelf(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(bookshelfPrefix, userID)
	defer releaseKey(key)

	if err := s.delete(key); err != nil {
		return fmt.Errorf("delete bookshelf: %w", err)
	}

	if s.searchIndexer != nil {
		if err := s.searchIndexer.DeleteUserDocuments(ctx, userID); err != nil && s.logger != nil {
			s.logger.Warn("failed to remove bookshelf from search index",
				"user_id", userID,
				"error", err,
			)
		}
	}

	return nil
}

// WatchBookshelf registers a watch on a user's bookshelf. The returned
// channel receives a snapshot after every write from a different origin.
// The cancel function unregisters the watch and closes the channel; it is
// safe to call more than once.
func (s *Store) WatchBookshelf(userID, origin string) (<-chan domain.Bookshelf, func()) {
	return s.watches.add(userID, origin)
}

// bookshelfWatch is one registered observer of a user's bookshelf.
type bookshelfWatch struct {
	ch     chan domain.Bookshelf
	userID string
	origin string
}

// watchRegistry tracks bookshelf watches per user.
type watchRegistry struct {
	mu      sync.Mutex
	watches map[string][]*bookshelfWatch
	closed  bool
}

func newWatchRegistry() *watchRegistry {
	return &watchRegistry{
		watches: make(map[string][]*bookshelfWatch),
	}
}

func (r *watchRegistry) add(userID, origin string) (<-chan domain.Bookshelf, func()) {
	w := &bookshelfWatch{
		// Buffer of one: notify replaces a pending snapshot instead of
		// queueing, so observers always see the latest state.
		ch:     make(chan domain.Bookshelf, 1),
		userID: userID,
		origin: origin,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		close(w.ch)
		return w.ch, func() {}
	}
	r.watches[userID] = append(r.watches[userID], w)
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.remove(w)
		})
	}

	return w.ch, cancel
}

func (r *watchRegistry) remove(w *bookshelfWatch) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	watches := r.watches[w.userID]
	for i, candidate := range watches {
		if candidate == w {
			r.watches[w.userID] = append(watches[:i], watches[i+1:]...)
			close(w.ch)
			break
		}
	}
	if len(r.watches[w.userID]) == 0 {
		delete(r.watches, w.userID)
	}
}

// notify delivers a snapshot to every watch on userID except those sharing
// the writer's origin. Pending undelivered snapshots are replaced.
func (r *watchRegistry) notify(userID, origin string, shelf *domain.Bookshelf) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	for _, w := range r.watches[userID] {
		if w.origin == origin {
			continue
		}

		// Drop a stale pending snapshot, then deliver the new one.
		select {
		case <-w.ch:
		default:
		}
		select {
		case w.ch <- *shelf.Clone():
		default:
		}
	}
}

func (r *watchRegistry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for _, watches := range r.watches {
		for _, w := range watches {
			close(w.ch)
		}
	}
	r.watches = nil
}
