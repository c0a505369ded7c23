package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
	"github.com/shelfmarkapp/shelfmark-server/internal/shelf"
)

// ShelfService exposes bookshelf operations over the session manager.
// Every operation acquires the user's live session, so edits hit the
// in-memory working copy and persist in the background.
type ShelfService struct {
	manager *shelf.Manager
	logger  *slog.Logger
}

// NewShelfService creates a new shelf service.
func NewShelfService(manager *shelf.Manager, logger *slog.Logger) *ShelfService {
	return &ShelfService{
		manager: manager,
		logger:  logger,
	}
}

// AddBookRequest shelves a catalog result.
type AddBookRequest struct {
	Book  domain.BookDraft `json:"book"`
	Shelf string           `json:"shelf"` // Defaults to Want to Read
}

// MoveBookRequest moves a book between shelves. Clients send either the
// drag-and-drop identifiers (ActiveID names the dragged book as
// "<shelf>-<index>", OverID the drop target, a book or a bare shelf) or
// the explicit form (From, Index, To).
type MoveBookRequest struct {
	ActiveID string `json:"active_id"`
	OverID   string `json:"over_id"`

	From  string `json:"from"`
	Index int    `json:"index"`
	To    string `json:"to"`
}

// resolve turns the request into a move, preferring the drag form when
// either drag identifier is present.
func (r MoveBookRequest) resolve() (shelf.MoveRequest, error) {
	if r.ActiveID != "" || r.OverID != "" {
		if r.ActiveID == "" || r.OverID == "" {
			return shelf.MoveRequest{}, errors.New("active_id and over_id must be given together")
		}
		return shelf.ResolveDrop(r.ActiveID, r.OverID)
	}

	if r.From == "" || r.To == "" {
		return shelf.MoveRequest{}, errors.New("either drag identifiers or from, index, and to are required")
	}
	from := domain.ShelfName(r.From)
	to := domain.ShelfName(r.To)
	if !from.Valid() || !to.Valid() {
		return shelf.MoveRequest{}, errors.New("unknown shelf")
	}
	if r.Index < 0 {
		return shelf.MoveRequest{}, errors.New("index must not be negative")
	}

	return shelf.MoveRequest{From: from, Index: r.Index, To: to}, nil
}

// RemoveBookRequest removes the book at a position.
type RemoveBookRequest struct {
	Shelf string `json:"shelf" validate:"required"`
	Index int    `json:"index" validate:"gte=0"`
}

// UpdateBookRequest applies a partial update to the book at a position.
type UpdateBookRequest struct {
	Shelf string           `json:"shelf" validate:"required"`
	Index int              `json:"index" validate:"gte=0"`
	Patch domain.BookPatch `json:"patch"`
}

// SyncStatus reports whether a user's working copy is persisted.
type SyncStatus struct {
	InSync  bool   `json:"in_sync"`
	Message string `json:"message,omitempty"`
}

// GetBookshelf returns a snapshot of the user's shelves.
func (s *ShelfService) GetBookshelf(ctx context.Context, userID string) (*domain.Bookshelf, error) {
	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.Snapshot(), nil
}

// AddBook shelves a book and returns it with its assigned ID.
// An invalid or empty shelf name falls back to Want to Read.
func (s *ShelfService) AddBook(ctx context.Context, userID string, req AddBookRequest) (*domain.Book, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if req.Book.Title == "" {
		return nil, domainerrors.Validation("book title is required")
	}

	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	book := session.AddBook(req.Book, domain.ShelfName(req.Shelf))

	if s.logger != nil {
		s.logger.Info("Book shelved",
			"user_id", userID,
			"book_id", book.ID,
			"title", book.Title,
		)
	}

	return &book, nil
}

// MoveBook resolves the requested move (drag identifiers or explicit
// coordinates) and applies it, returning the resulting snapshot. No-op
// moves (same shelf, stale index) are not errors; the client just gets
// the current state back.
func (s *ShelfService) MoveBook(ctx context.Context, userID string, req MoveBookRequest) (*domain.Bookshelf, error) {
	move, err := req.resolve()
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	session.MoveBook(move)

	return session.Snapshot(), nil
}

// RemoveBook takes a book off a shelf.
func (s *ShelfService) RemoveBook(ctx context.Context, userID string, req RemoveBookRequest) (*domain.Bookshelf, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if !domain.ShelfName(req.Shelf).Valid() {
		return nil, domainerrors.Validation("unknown shelf")
	}

	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !session.RemoveBook(domain.ShelfName(req.Shelf), req.Index) {
		return nil, domainerrors.NotFound("no book at that position")
	}

	return session.Snapshot(), nil
}

// UpdateBook applies a partial update to a shelved book.
func (s *ShelfService) UpdateBook(ctx context.Context, userID string, req UpdateBookRequest) (*domain.Bookshelf, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if !domain.ShelfName(req.Shelf).Valid() {
		return nil, domainerrors.Validation("unknown shelf")
	}

	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !session.UpdateBook(domain.ShelfName(req.Shelf), req.Index, req.Patch) {
		return nil, domainerrors.NotFound("no book at that position")
	}

	return session.Snapshot(), nil
}

// Stats computes reading statistics from the current snapshot.
func (s *ShelfService) Stats(ctx context.Context, userID string) (*domain.ReadingStats, error) {
	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := domain.ComputeStats(session.Snapshot())
	return &stats, nil
}

// Status reports the user's sync state.
func (s *ShelfService) Status(ctx context.Context, userID string) (*SyncStatus, error) {
	session, err := s.manager.Acquire(ctx, userID)
	if err != nil {
		return nil, err
	}

	ok, message := session.SyncStatus()
	return &SyncStatus{InSync: ok, Message: message}, nil
}

// CloseSession flushes and discards the user's live session.
func (s *ShelfService) CloseSession(userID string) {
	s.manager.Close(userID)
}
