package api

import (
	"errors"
	"net/http"

	"github.com/shelfmarkapp/shelfmark-server/internal/catalog"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
)

// catalogSearchResponse wraps catalog results with a staleness flag.
// Superseded queries return an empty result marked stale so type-ahead
// clients can simply ignore it.
type catalogSearchResponse struct {
	Results []domain.BookDraft `json:"results"`
	Stale   bool               `json:"stale,omitempty"`
}

// handleCatalogSearch looks up books in the external catalog.
func (s *Server) handleCatalogSearch(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	query := r.URL.Query().Get("q")
	results, err := s.catalogService.Search(r.Context(), userID, query)
	if err != nil {
		if errors.Is(err, catalog.ErrSuperseded) {
			response.Success(w, catalogSearchResponse{Results: []domain.BookDraft{}, Stale: true}, s.logger)
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, catalogSearchResponse{Results: results}, s.logger)
}
