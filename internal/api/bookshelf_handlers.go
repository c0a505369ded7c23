package api

import (
	"net/http"
	"strconv"

	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/search"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
)

// handleGetBookshelf returns the authenticated user's shelves.
func (s *Server) handleGetBookshelf(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	shelves, err := s.shelfService.GetBookshelf(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, shelves, s.logger)
}

// handleAddBook shelves a catalog result.
func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req service.AddBookRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	book, err := s.shelfService.AddBook(r.Context(), userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, book, s.logger)
}

// handleMoveBook applies a drag-and-drop move and returns the new state.
func (s *Server) handleMoveBook(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req service.MoveBookRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	shelves, err := s.shelfService.MoveBook(r.Context(), userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, shelves, s.logger)
}

// handleRemoveBook takes a book off a shelf.
func (s *Server) handleRemoveBook(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req service.RemoveBookRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	shelves, err := s.shelfService.RemoveBook(r.Context(), userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, shelves, s.logger)
}

// handleUpdateBook applies a partial update to a shelved book.
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	var req service.UpdateBookRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	shelves, err := s.shelfService.UpdateBook(r.Context(), userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, shelves, s.logger)
}

// handleStats returns reading statistics for the user's shelves.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	stats, err := s.shelfService.Stats(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, stats, s.logger)
}

// handleShelfSearch runs a full-text search over the user's shelves.
func (s *Server) handleShelfSearch(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	query := r.URL.Query()
	params := search.DefaultSearchParams()
	params.Query = query.Get("q")
	params.Shelf = query.Get("shelf")
	params.Category = query.Get("category")
	params.SortBy = query.Get("sort")
	params.SortOrder = query.Get("order")

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			params.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			params.Offset = offset
		}
	}

	result, err := s.searchService.Search(r.Context(), userID, params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, result, s.logger)
}

// handleSyncStatus reports whether the user's working copy is persisted.
func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	status, err := s.shelfService.Status(r.Context(), userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, status, s.logger)
}

// handleStream opens the SSE stream for the authenticated user.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.sseHandler.ServeUser(w, r, getUserID(r.Context()))
}
