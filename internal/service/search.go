package service

import (
	"context"
	"log/slog"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/search"
)

// SearchService wraps the Bleve index. It implements store.SearchIndexer,
// so the store pushes every bookshelf write through here to keep the index
// in sync.
type SearchService struct {
	index  *search.SearchIndex
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		logger: logger,
	}
}

// Search runs a full-text query over the user's shelves.
func (s *SearchService) Search(ctx context.Context, userID string, params search.SearchParams) (*search.SearchResult, error) {
	params.UserID = userID
	if params.Limit <= 0 {
		params.Limit = search.DefaultSearchParams().Limit
	}

	return s.index.Search(ctx, params)
}

// IndexBookshelf implements store.SearchIndexer.
func (s *SearchService) IndexBookshelf(ctx context.Context, userID string, shelf *domain.Bookshelf) error {
	return s.index.IndexBookshelf(ctx, userID, shelf)
}

// DeleteUserDocuments implements store.SearchIndexer.
func (s *SearchService) DeleteUserDocuments(ctx context.Context, userID string) error {
	return s.index.DeleteUserDocuments(ctx, userID)
}
