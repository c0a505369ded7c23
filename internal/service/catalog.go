package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shelfmarkapp/shelfmark-server/internal/catalog"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
)

// CatalogService runs book lookups against the external catalog.
//
// Each user gets their own searcher so that a burst of keystrokes from one
// client resolves to the latest query only, without users interfering with
// each other.
type CatalogService struct {
	client *catalog.Client
	logger *slog.Logger

	mu        sync.Mutex
	searchers map[string]*catalog.Searcher
}

// NewCatalogService creates a catalog service over the shared client.
func NewCatalogService(client *catalog.Client, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		client:    client,
		logger:    logger,
		searchers: make(map[string]*catalog.Searcher),
	}
}

// Search queries the catalog for the user. Superseded queries return
// ErrSuperseded from the catalog package; handlers translate that to
// an empty 200 so stale responses never reach the UI as errors.
func (s *CatalogService) Search(ctx context.Context, userID, query string) ([]domain.BookDraft, error) {
	if query == "" {
		return nil, domainerrors.Validation("query is required")
	}

	results, err := s.searcherFor(userID).Search(ctx, query)
	if err != nil {
		return nil, err
	}

	return results, nil
}

func (s *CatalogService) searcherFor(userID string) *catalog.Searcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	searcher, ok := s.searchers[userID]
	if !ok {
		searcher = catalog.NewSearcher(s.client)
		s.searchers[userID] = searcher
	}
	return searcher
}
