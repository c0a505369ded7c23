// Package search provides full-text search over shelf contents using Bleve.
// Every book on every shelf is indexed as a flat document scoped to its
// owner, so queries always carry a user filter.
package search

import "github.com/shelfmarkapp/shelfmark-server/internal/domain"

// SearchDocument is the flat document structure for the Bleve index.
// One document per book per user; the ID namespaces the book under its
// owner so the same catalog volume on two accounts never collides.
type SearchDocument struct {
	// Identity
	ID     string `json:"id"`      // "<user_id>/<book_id>"
	UserID string `json:"user_id"` // Owner scope for query filtering
	BookID string `json:"book_id"` // Original book ID for result lookup

	// Searchable text
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`

	// Keyword fields for exact filtering
	Shelf      string   `json:"shelf"`
	Categories []string `json:"categories,omitempty"`
	Publisher  string   `json:"publisher,omitempty"`

	// Numeric fields for sorting
	PageCount int   `json:"page_count,omitempty"`
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// NewSearchDocument builds an index document for one book on one shelf.
func NewSearchDocument(userID string, shelf domain.ShelfName, book *domain.Book) *SearchDocument {
	return &SearchDocument{
		ID:          userID + "/" + book.ID,
		UserID:      userID,
		BookID:      book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Shelf:       string(shelf),
		Categories:  book.Categories,
		Publisher:   book.Publisher,
		PageCount:   book.PageCount,
		UpdatedAt:   book.UpdatedAt.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"user_id":    d.UserID,
		"book_id":    d.BookID,
		"title":      d.Title,
		"author":     d.Author,
		"shelf":      d.Shelf,
		"updated_at": d.UpdatedAt,
	}

	// Optional fields - only add if non-empty
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if d.PageCount > 0 {
		m["page_count"] = d.PageCount
	}

	return m
}
